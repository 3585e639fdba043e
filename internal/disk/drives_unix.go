//go:build !windows

package disk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// Filesystems that are real storage even though the source is not a /dev node
var networkFS = map[string]bool{
	"nfs":   true,
	"nfs4":  true,
	"cifs":  true,
	"smbfs": true,
	"smb3":  true,
	"zfs":   true,
	"btrfs": true,
	"9p":    true,
}

// realStorage keeps block-device and network mounts
func realStorage(m *mountinfo.Info) (skip, stop bool) {
	if strings.HasPrefix(m.Source, "/dev/loop") {
		return true, false
	}
	return !strings.HasPrefix(m.Source, "/dev/") && !networkFS[m.FSType], false
}

func listDrives() ([]Drive, error) {
	mounts, err := mountinfo.GetMounts(realStorage)
	if err != nil {
		return nil, fmt.Errorf("read mounts: %w", err)
	}
	drives := collect(mounts, space)
	if len(drives) == 0 {
		return rootOnly()
	}
	return drives, nil
}

// collect sizes each mount point once, dropping mounts without capacity
func collect(mounts []*mountinfo.Info, statfs func(string) (uint64, uint64, error)) []Drive {
	seen := make(map[string]bool)
	var drives []Drive
	for _, m := range mounts {
		if seen[m.Mountpoint] {
			continue
		}
		seen[m.Mountpoint] = true

		free, total, err := statfs(m.Mountpoint)
		if err != nil || total == 0 {
			continue
		}
		drives = append(drives, Drive{
			Name:           filepath.Base(m.Source),
			MountPoint:     m.Mountpoint,
			TotalSpace:     total,
			AvailableSpace: free,
		})
	}
	return drives
}

func rootOnly() ([]Drive, error) {
	free, total, err := space("/")
	if err != nil {
		return nil, err
	}
	return []Drive{{Name: "/", MountPoint: "/", TotalSpace: total, AvailableSpace: free}}, nil
}
