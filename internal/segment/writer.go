package segment

import (
	"os"
	"sync"
	"time"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// Writer accumulates one in-flight segment in a private file under the
// audio_buffer directory. The file is never visible to downstream consumers;
// it either gets finalized (atomic rename into recordings/) or discarded.
type Writer struct {
	stationID string

	mu    sync.Mutex
	file  *os.File
	path  string
	start time.Time
	bytes int64
}

// NewWriter opens a private write target for a new segment.
func NewWriter(bufferDir, stationID string) (*Writer, error) {
	f, err := os.CreateTemp(bufferDir, stationID+"-*.part")
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-segment-buffer").
			Context("station", stationID).
			Build()
	}
	return &Writer{stationID: stationID, file: f, path: f.Name()}, nil
}

// Write appends stream bytes to the buffer file.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, errors.Newf("segment writer for %s is closed", w.stationID).
			Category(errors.CategoryState).
			Build()
	}
	n, err := w.file.Write(p)
	w.bytes += int64(n)
	return n, err
}

// SetStart records the timestamp of the first successfully received byte.
// Segment rotation is measured from this instant.
func (w *Writer) SetStart(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.start.IsZero() {
		w.start = t
	}
}

// Start returns the first-byte timestamp, zero if no data arrived yet.
func (w *Writer) Start() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.start
}

// Bytes returns the number of bytes written so far.
func (w *Writer) Bytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// StationID returns the owning station.
func (w *Writer) StationID() string {
	return w.stationID
}

// flushAndClose syncs buffered data to disk and closes the file, returning
// the private path for the rename.
func (w *Writer) flushAndClose() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return "", errors.Newf("segment writer for %s is closed", w.stationID).
			Category(errors.CategoryState).
			Build()
	}

	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil

	if syncErr != nil {
		return "", syncErr
	}
	if closeErr != nil {
		return "", closeErr
	}
	return w.path, nil
}

// Discard drops the in-flight segment without publishing it.
func (w *Writer) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if w.path == "" {
		return nil
	}
	err := os.Remove(w.path)
	w.path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
