//go:build windows

package diskmanager

import (
	"syscall"
	"unsafe"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// GetDiskUsage returns the disk usage percentage for the volume containing
// the given path.
func GetDiskUsage(path string) (float64, error) {
	info, err := GetDetailedDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return info.UsagePercent(), nil
}

// GetDetailedDiskUsage returns the total and used disk space in bytes for
// the volume containing the given path.
func GetDetailedDiskUsage(path string) (DiskSpaceInfo, error) {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpaceEx := kernel32.NewProc("GetDiskFreeSpaceExW")

	utf16Path, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Context("operation", "utf16_conversion").
			Build()
	}

	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes int64
	ret, _, callErr := getDiskFreeSpaceEx.Call(
		uintptr(unsafe.Pointer(utf16Path)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalNumberOfBytes)),
		uintptr(unsafe.Pointer(&totalNumberOfFreeBytes)),
	)
	if ret == 0 {
		return DiskSpaceInfo{}, errors.New(callErr).
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Context("operation", "get_disk_free_space").
			Build()
	}

	return DiskSpaceInfo{
		TotalBytes: uint64(totalNumberOfBytes),
		UsedBytes:  uint64(totalNumberOfBytes - totalNumberOfFreeBytes),
	}, nil
}
