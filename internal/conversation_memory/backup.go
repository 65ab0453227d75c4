package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lewisedginton/wellbeing_companion/internal/storage_manager"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// DefaultBackupName is the file a backup is written to when none is given.
const DefaultBackupName = "conversation_backup.json"

// SaveBackup writes a snapshot of the store to name through files.
func (s *Store) SaveBackup(ctx context.Context, files storage_manager.FileProvider, name string) error {
	if name == "" {
		name = DefaultBackupName
	}
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := files.Write(ctx, name, data); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", name, err)
	}
	s.log.Info("Saved conversation memory backup", logger.StringField("backup", name))
	return nil
}

// LoadBackup restores the store from a backup written by SaveBackup. A
// missing backup is not an error and leaves the store untouched.
func (s *Store) LoadBackup(ctx context.Context, files storage_manager.FileProvider, name string) (bool, error) {
	if name == "" {
		name = DefaultBackupName
	}
	exists, err := files.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check backup %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}

	data, err := files.Read(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to read backup %s: %w", name, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("failed to decode backup %s: %w", name, err)
	}
	if err := s.Restore(ctx, snap); err != nil {
		return false, err
	}
	return true, nil
}
