package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDrives(t *testing.T) {
	drives, err := GetDrives()
	require.NoError(t, err)
	require.NotEmpty(t, drives)

	for i, d := range drives {
		assert.NotEmpty(t, d.MountPoint)
		assert.NotEmpty(t, d.Name)
		assert.LessOrEqual(t, d.AvailableSpace, d.TotalSpace)
		if i > 0 {
			assert.LessOrEqual(t, drives[i-1].MountPoint, d.MountPoint)
		}
	}
}

func TestGetDiskUsage(t *testing.T) {
	used, free, total, err := GetDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, total, uint64(0))
	assert.LessOrEqual(t, free, total)
	assert.GreaterOrEqual(t, used, 0.0)
	assert.LessOrEqual(t, used, 100.0)

	freePct, err := GetFreePercent(t.TempDir())
	require.NoError(t, err)
	assert.InDelta(t, 100.0-used, freePct, 5.0)
}

func TestUsedPercent(t *testing.T) {
	assert.Equal(t, 0.0, Drive{}.UsedPercent())
	assert.Equal(t, 75.0, Drive{TotalSpace: 100, AvailableSpace: 25}.UsedPercent())
	assert.Equal(t, 0.0, Drive{TotalSpace: 100, AvailableSpace: 200}.UsedPercent())
}
