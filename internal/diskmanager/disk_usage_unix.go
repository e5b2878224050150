//go:build linux || darwin

package diskmanager

import (
	"syscall"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// GetDiskUsage returns the disk usage percentage for the filesystem
// containing the given path.
func GetDiskUsage(path string) (float64, error) {
	info, err := GetDetailedDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return info.UsagePercent(), nil
}

// GetDetailedDiskUsage returns the total and used disk space in bytes for
// the filesystem containing the given path.
func GetDetailedDiskUsage(path string) (DiskSpaceInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Build()
	}

	totalBytes := stat.Blocks * uint64(stat.Bsize)
	freeBytes := stat.Bavail * uint64(stat.Bsize) // available to non-root users
	return DiskSpaceInfo{
		TotalBytes: totalBytes,
		UsedBytes:  totalBytes - freeBytes,
	}, nil
}
