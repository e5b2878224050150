// paths.go: resolves the configured assets layout into the concrete on-disk
// directories consumed by the capture core and its downstream collaborators.
package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// Paths is the resolved directory layout. It is read-only after init and
// safe to share across workers.
type Paths struct {
	AssetsRoot string // base assets directory
	DataDir    string // data directory under the assets root

	RecordingsDir  string   // published, finalized segments
	AudioBufferDir string   // private in-flight write targets, invisible until finalized
	BufferDirs     []string // audio_buffer_<i> handoff directories, one per downstream worker

	TranscriptsDir        string // downstream transcript area, owned by collaborators
	UnclassifiedBufferDir string // transcripts pending classification
	ClassifiedDir         string // classified transcripts

	LogsDir string // service log files

	ScheduleFile          string // roster input file
	ProcessedScheduleFile string // normalized roster dump for cross-checking
}

// ResolvePaths maps settings into the on-disk layout.
func ResolvePaths(s *Settings) *Paths {
	dataDir := filepath.Join(s.Assets.Root, s.Assets.Data)

	bufferDirs := make([]string, s.Downstream.Workers)
	for i := range bufferDirs {
		bufferDirs[i] = filepath.Join(dataDir, fmt.Sprintf("audio_buffer_%d", i+1))
	}

	transcriptsDir := filepath.Join(dataDir, "transcripts")

	return &Paths{
		AssetsRoot:            s.Assets.Root,
		DataDir:               dataDir,
		RecordingsDir:         filepath.Join(dataDir, "recordings"),
		AudioBufferDir:        filepath.Join(dataDir, "audio_buffer"),
		BufferDirs:            bufferDirs,
		TranscriptsDir:        transcriptsDir,
		UnclassifiedBufferDir: filepath.Join(transcriptsDir, "unclassified_buffer"),
		ClassifiedDir:         filepath.Join(transcriptsDir, "classified"),
		LogsDir:               filepath.Join(s.Assets.Root, "logs"),
		ScheduleFile:          filepath.Join(s.Assets.Root, s.Recording.Schedule),
		ProcessedScheduleFile: filepath.Join(dataDir, "processed_schedule.yaml"),
	}
}

// EnsureDirs creates every resolved directory and verifies it is writable.
// Failure here is an unrecoverable initialization error.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.DataDir,
		p.RecordingsDir,
		p.AudioBufferDir,
		p.TranscriptsDir,
		p.UnclassifiedBufferDir,
		p.ClassifiedDir,
		p.LogsDir,
	}
	dirs = append(dirs, p.BufferDirs...)

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Category(errors.CategoryFileIO).
				Context("operation", "create-directory").
				Context("dir", dir).
				Build()
		}
		if err := probeWritable(dir); err != nil {
			return err
		}
	}
	return nil
}

// probeWritable confirms the process can create files in dir.
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "probe-writable").
			Context("dir", dir).
			Build()
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
