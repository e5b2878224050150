package segment

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/errors"
)

func testPaths(t *testing.T, handoffDirs int) *conf.Paths {
	t.Helper()

	root := t.TempDir()
	p := &conf.Paths{
		AssetsRoot:     root,
		DataDir:        filepath.Join(root, "data"),
		RecordingsDir:  filepath.Join(root, "data", "recordings"),
		AudioBufferDir: filepath.Join(root, "data", "audio_buffer"),
	}
	for i := 1; i <= handoffDirs; i++ {
		p.BufferDirs = append(p.BufferDirs, filepath.Join(root, "data", "audio_buffer_"+string(rune('0'+i))))
	}

	require.NoError(t, os.MkdirAll(p.RecordingsDir, 0o755))
	require.NoError(t, os.MkdirAll(p.AudioBufferDir, 0o755))
	for _, dir := range p.BufferDirs {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return p
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFinalizeEmptyWriterIsDiscarded(t *testing.T) {
	t.Parallel()

	paths := testPaths(t, 0)
	f := NewFinalizer(paths, NewSequenceRegistry(), quietLogger(), nil)

	w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
	require.NoError(t, err)

	seg, err := f.Finalize(w, time.Now())
	require.NoError(t, err)
	assert.Nil(t, seg, "zero-byte segment must not be published")

	entries, err := os.ReadDir(paths.RecordingsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = os.ReadDir(paths.AudioBufferDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "discarded buffer file must be removed")
	assert.Zero(t, f.Registry().Last("NY_WABC"), "discard must not consume a sequence number")
}

func TestFinalizePublishesWithAtomicRename(t *testing.T) {
	t.Parallel()

	paths := testPaths(t, 0)
	f := NewFinalizer(paths, NewSequenceRegistry(), quietLogger(), nil)

	start := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
	require.NoError(t, err)
	w.SetStart(start)
	_, err = w.Write([]byte("stream-data"))
	require.NoError(t, err)

	seg, err := f.Finalize(w, start.Add(30*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, seg)

	assert.Equal(t, "NY_WABC", seg.StationID)
	assert.Equal(t, uint64(1), seg.Sequence)
	assert.Equal(t, int64(len("stream-data")), seg.Bytes)
	assert.Equal(t, 30*time.Minute, seg.Duration)
	assert.Equal(t, filepath.Join(paths.RecordingsDir, "NY_WABC_2026_08_24_08_00_00_0001.mp3"), seg.Path)

	data, err := os.ReadFile(seg.Path)
	require.NoError(t, err)
	assert.Equal(t, "stream-data", string(data))

	entries, err := os.ReadDir(paths.AudioBufferDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "buffer file must be gone after rename")
}

func TestFinalizeNeverExposesPartialFiles(t *testing.T) {
	t.Parallel()

	paths := testPaths(t, 0)
	f := NewFinalizer(paths, NewSequenceRegistry(), quietLogger(), nil)

	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A downstream consumer scanning the recordings area must only ever
		// observe fully written files.
		for {
			select {
			case <-stop:
				return
			default:
			}
			entries, err := os.ReadDir(paths.RecordingsDir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				info, err := e.Info()
				if err != nil {
					continue
				}
				assert.Equal(t, int64(len(payload)), info.Size(),
					"observed a partially written segment: %s", e.Name())
			}
		}
	}()

	start := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
		require.NoError(t, err)
		w.SetStart(start.Add(time.Duration(i) * time.Minute))
		_, err = w.Write(payload)
		require.NoError(t, err)

		_, err = f.Finalize(w, start.Add(time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
}

func TestFinalizeFlushFailureDiscardsAndEscalates(t *testing.T) {
	t.Parallel()

	paths := testPaths(t, 0)
	// Removing the recordings dir makes the publish rename fail.
	require.NoError(t, os.RemoveAll(paths.RecordingsDir))

	f := NewFinalizer(paths, NewSequenceRegistry(), quietLogger(), nil)
	start := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

	for i := 1; i <= consecutiveFailureAlertThreshold; i++ {
		w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
		require.NoError(t, err)
		w.SetStart(start)
		_, err = w.Write([]byte("doomed"))
		require.NoError(t, err)

		seg, err := f.Finalize(w, start.Add(time.Minute))
		require.Error(t, err)
		assert.Nil(t, seg)
		assert.True(t, errors.HasCategory(err, errors.CategorySegmentFinalize))
		assert.Equal(t, i, f.ConsecutiveFlushFailures("NY_WABC"))
	}

	assert.Zero(t, f.Registry().Last("NY_WABC"), "failed publishes must not consume sequence numbers")

	entries, err := os.ReadDir(paths.AudioBufferDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed segments must be discarded from the buffer")

	// Recovery resets the streak and reuses the unconsumed sequence.
	require.NoError(t, os.MkdirAll(paths.RecordingsDir, 0o755))
	w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
	require.NoError(t, err)
	w.SetStart(start)
	_, err = w.Write([]byte("fine"))
	require.NoError(t, err)

	seg, err := f.Finalize(w, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seg.Sequence)
	assert.Zero(t, f.ConsecutiveFlushFailures("NY_WABC"))
}

func TestFinalizeHandsOffToLeastLoadedBufferDir(t *testing.T) {
	t.Parallel()

	paths := testPaths(t, 2)
	// Pre-load the first handoff dir so the second is the lighter one.
	require.NoError(t, os.WriteFile(filepath.Join(paths.BufferDirs[0], "pending.mp3"), []byte("x"), 0o644))

	f := NewFinalizer(paths, NewSequenceRegistry(), quietLogger(), nil)

	start := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	w, err := NewWriter(paths.AudioBufferDir, "NY_WABC")
	require.NoError(t, err)
	w.SetStart(start)
	_, err = w.Write([]byte("stream-data"))
	require.NoError(t, err)

	seg, err := f.Finalize(w, start.Add(time.Minute))
	require.NoError(t, err)

	copied, err := os.ReadFile(filepath.Join(paths.BufferDirs[1], filepath.Base(seg.Path)))
	require.NoError(t, err)
	assert.Equal(t, "stream-data", string(copied))

	// Original stays published.
	_, err = os.Stat(seg.Path)
	assert.NoError(t, err)
}
