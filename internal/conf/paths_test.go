package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Downstream.Workers = 3

	p := ResolvePaths(s)

	assert.Equal(t, filepath.Join("assets", "data", "recordings"), p.RecordingsDir)
	assert.Equal(t, filepath.Join("assets", "data", "audio_buffer"), p.AudioBufferDir)
	assert.Equal(t, filepath.Join("assets", "data", "transcripts", "unclassified_buffer"), p.UnclassifiedBufferDir)
	assert.Equal(t, filepath.Join("assets", "weekly_schedule.yaml"), p.ScheduleFile)
	require.Len(t, p.BufferDirs, 3)
	assert.Equal(t, filepath.Join("assets", "data", "audio_buffer_1"), p.BufferDirs[0])
	assert.Equal(t, filepath.Join("assets", "data", "audio_buffer_3"), p.BufferDirs[2])
}

func TestEnsureDirs(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Assets.Root = t.TempDir()
	s.Downstream.Workers = 2

	p := ResolvePaths(s)
	require.NoError(t, p.EnsureDirs())

	for _, dir := range append([]string{p.RecordingsDir, p.LogsDir, p.ClassifiedDir}, p.BufferDirs...) {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestEnsureDirsUnwritableRoot(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o555))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	s := validSettings()
	s.Assets.Root = root

	err := ResolvePaths(s).EnsureDirs()
	assert.Error(t, err)
}
