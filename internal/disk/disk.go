// Package disk reports mounted volumes and their capacity.
package disk

import "sort"

// Drive is a read-only snapshot of one mounted volume
type Drive struct {
	Name           string `json:"name"`
	MountPoint     string `json:"mount_point"`
	TotalSpace     uint64 `json:"total_space"`
	AvailableSpace uint64 `json:"available_space"`
}

// UsedPercent returns the share of the volume in use
func (d Drive) UsedPercent() float64 {
	if d.TotalSpace == 0 {
		return 0
	}
	used := d.TotalSpace - min(d.AvailableSpace, d.TotalSpace)
	return float64(used) / float64(d.TotalSpace) * 100.0
}

// GetDrives lists mounted volumes sorted by mount point
func GetDrives() ([]Drive, error) {
	drives, err := listDrives()
	if err != nil {
		return nil, err
	}
	sort.Slice(drives, func(i, j int) bool {
		return drives[i].MountPoint < drives[j].MountPoint
	})
	return drives, nil
}

// GetDiskUsage returns the percentage of disk space used for a given path
func GetDiskUsage(path string) (usedPercent float64, freeBytes uint64, totalBytes uint64, err error) {
	freeBytes, totalBytes, err = space(path)
	if err != nil {
		return 0, 0, 0, err
	}
	d := Drive{TotalSpace: totalBytes, AvailableSpace: freeBytes}
	return d.UsedPercent(), freeBytes, totalBytes, nil
}

// GetFreePercent returns the percentage of free disk space
func GetFreePercent(path string) (float64, error) {
	usedPercent, _, _, err := GetDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return 100.0 - usedPercent, nil
}
