//go:build linux || darwin

package diskmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDiskUsage(t *testing.T) {
	t.Parallel()

	usage, err := GetDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage, 0.0)
	assert.LessOrEqual(t, usage, 100.0)
}

func TestGetDetailedDiskUsage(t *testing.T) {
	t.Parallel()

	info, err := GetDetailedDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, info.TotalBytes)
	assert.LessOrEqual(t, info.UsedBytes, info.TotalBytes)
}

func TestGetDiskUsageMissingPath(t *testing.T) {
	t.Parallel()

	_, err := GetDiskUsage("/definitely/not/a/real/path")
	assert.Error(t, err)
}

func TestUsagePercentZeroTotal(t *testing.T) {
	t.Parallel()

	assert.Zero(t, DiskSpaceInfo{}.UsagePercent())
}
