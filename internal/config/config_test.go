package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/ged")

	if cfg.BaseDir != "/data/ged" {
		t.Errorf("BaseDir = %q", cfg.BaseDir)
	}
	if cfg.LogDir != filepath.Join("/data/ged", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Ledger.Type != "sqlite" {
		t.Errorf("Ledger.Type = %q, want sqlite", cfg.Ledger.Type)
	}
	if cfg.Ledger.DataDir != filepath.Join("/data/ged", "ledger") {
		t.Errorf("Ledger.DataDir = %q", cfg.Ledger.DataDir)
	}
	if cfg.Backup.Dir != filepath.Join("/data/ged", "backups") {
		t.Errorf("Backup.Dir = %q", cfg.Backup.Dir)
	}
	if cfg.Pending.TTLMinutes != 5 || cfg.Pending.SweepSeconds != 30 {
		t.Errorf("Pending = %+v, want defaults 5/30", cfg.Pending)
	}
	if cfg.Encryption.PublicKeyPath != filepath.Join("/data/ged", "keys", "ged.pub") {
		t.Errorf("Encryption.PublicKeyPath = %q", cfg.Encryption.PublicKeyPath)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	m := &Manager{}
	cfg := NewConfig("/data/ged")
	cfg.Backup.Encrypted = true
	cfg.Filesystem.Protected = []string{"*.lock", "/etc/**"}

	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.BaseDir != cfg.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, cfg.BaseDir)
	}
	if got.Ledger != cfg.Ledger {
		t.Errorf("Ledger = %+v, want %+v", got.Ledger, cfg.Ledger)
	}
	if !got.Backup.Encrypted {
		t.Error("Backup.Encrypted lost in round trip")
	}
	if len(got.Filesystem.Protected) != 2 || got.Filesystem.Protected[0] != "*.lock" {
		t.Errorf("Filesystem.Protected = %v", got.Filesystem.Protected)
	}
}

func TestManager_Read(t *testing.T) {
	t.Run("partial config leaves other fields zero", func(t *testing.T) {
		m := &Manager{}
		input := `
base_dir = "/custom"

[ledger]
type = "memory"
`
		cfg, err := m.Read(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if cfg.BaseDir != "/custom" {
			t.Errorf("BaseDir = %q", cfg.BaseDir)
		}
		if cfg.Ledger.Type != "memory" {
			t.Errorf("Ledger.Type = %q", cfg.Ledger.Type)
		}
		if cfg.Pending.TTLMinutes != 0 {
			t.Errorf("Pending.TTLMinutes = %d, want 0 for unset", cfg.Pending.TTLMinutes)
		}
	})

	t.Run("invalid TOML fails", func(t *testing.T) {
		m := &Manager{}
		if _, err := m.Read(strings.NewReader("not = [valid")); err == nil {
			t.Error("Read() expected error for invalid TOML")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("writes a readable config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ged.toml")
		cfg := NewConfig("/data/ged")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != "/data/ged" {
			t.Errorf("BaseDir = %q", got.BaseDir)
		}
	})

	t.Run("fails if the file exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ged.toml")
		if err := os.WriteFile(path, []byte("base_dir = \"/x\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Init(path, NewConfig("/y")); err == nil {
			t.Error("Init() expected error for existing file")
		}
	})
}
