package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"ged-go/internal/config"
	"ged-go/internal/editor"
)

// NewLedgerFromConfig creates a Ledger implementation based on the ledger
// config type.
func NewLedgerFromConfig(cfg config.LedgerConfig) (editor.Ledger, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite ledger")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
		return NewSQLiteLedger(filepath.Join(cfg.DataDir, "ledger.db"))
	case "memory":
		return NewSQLiteLedger(":memory:")
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
