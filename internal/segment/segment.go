// Package segment owns the lifecycle of recorded audio segments: in-flight
// write buffers, per-station sequence numbering, atomic publication into the
// recordings area and the handoff copy for downstream consumers.
package segment

import (
	"fmt"
	"time"
)

// Segment is one finalized, immutable unit of recorded audio. It is created
// only after a full write-buffer flush succeeds; destruction is left to
// external retention policy.
type Segment struct {
	StationID string        // owning station, e.g. "NY_WABC"
	Sequence  uint64        // monotonically increasing per station within a cycle
	Start     time.Time     // timestamp of the first received byte
	Duration  time.Duration // recorded duration, may be short for a drained segment
	Path      string        // published location under recordings/
	Bytes     int64         // final flushed size
}

// FileName returns the deterministic published name for a segment, encoding
// station id, start timestamp and sequence number.
func FileName(stationID string, start time.Time, sequence uint64) string {
	return fmt.Sprintf("%s_%s_%04d.mp3", stationID, start.Format("2006_01_02_15_04_05"), sequence)
}
