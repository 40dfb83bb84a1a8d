package backup

import (
	"fmt"

	"ged-go/internal/config"
	"ged-go/internal/editor"
)

// NewStoreFromConfig creates the backup store described by cfg.
// The encryptor is only attached when encrypted backups are enabled.
func NewStoreFromConfig(cfg config.BackupConfig, clock editor.Clock, encryptor editor.Encryptor) (editor.BackupStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup dir must be configured")
	}
	if !cfg.Encrypted {
		encryptor = nil
	} else if encryptor == nil || !encryptor.IsConfigured() {
		return nil, fmt.Errorf("encrypted backups enabled but encryption keys are not set up")
	}
	return NewFileSystemStore(cfg.Dir, clock, encryptor)
}
