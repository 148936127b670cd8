package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"zapisnik/internal/catalog"
	"zapisnik/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "appointments.db")
	backupDir := filepath.Join(tmpDir, "backups")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	db.SetCatalog(catalog.New(nil))

	require.NoError(t, db.CreateAppointment(context.Background(),
		newAppointment(1, "Therapist", "10.06", "10:00")))
	require.NoError(t, db.Close())

	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Копия — валидная база с той же записью
	backupDB, err := NewDB(filepath.Join(backupDir, files[0].Name()), &logger)
	require.NoError(t, err)
	defer backupDB.Close()

	list, err := backupDB.ListByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStartDisabled(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewBackupService("unused.db", config.BackupConfig{Enabled: false}, &logger)

	// Возвращается сразу, без паники и без создания файлов
	svc.Start(context.Background())
}
