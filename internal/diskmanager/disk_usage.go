// Package diskmanager reports filesystem usage for the recordings volume so
// the scheduler can flag storage pressure before segment flushes start
// failing.
package diskmanager

// DiskSpaceInfo holds detailed disk space information.
type DiskSpaceInfo struct {
	TotalBytes uint64
	UsedBytes  uint64
}

// UsagePercent returns the used fraction as a percentage.
func (d DiskSpaceInfo) UsagePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.UsedBytes) / float64(d.TotalBytes) * 100.0
}
