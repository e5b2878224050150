package backup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavepulse/wavepulse-go/internal/conf"
)

func TestNewFTPUploaderRequiresHost(t *testing.T) {
	t.Parallel()

	_, err := NewFTPUploader(conf.BackupSettings{}, nil)
	assert.Error(t, err)
}

func TestNewFTPUploaderDefaults(t *testing.T) {
	t.Parallel()

	u, err := NewFTPUploader(conf.BackupSettings{Host: "ftp.example.com"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, 21, u.cfg.Port)
	assert.Equal(t, 30, u.cfg.Timeout)
	assert.Equal(t, 3, u.cfg.MaxRetries)
}

func TestListRecordingsFiltersForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NY_WABC_2026_08_24_08_00_00_0001.mp3"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NY_WABC-12345.part"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := listRecordings(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "NY_WABC_2026_08_24_08_00_00_0001.mp3"), files[0])
}

func TestDayFolder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "daily_recordings/2026-08-24", dayFolder("daily_recordings", now))
	assert.Equal(t, "2026-08-24", dayFolder("", now))
}
