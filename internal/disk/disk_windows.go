package disk

import (
	"golang.org/x/sys/windows"
)

func space(path string) (free, total uint64, err error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}
	var avail, size, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &size, &totalFree); err != nil {
		return 0, 0, err
	}
	return avail, size, nil
}

func listDrives() ([]Drive, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, err
	}

	var drives []Drive
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A' + i))
		root := letter + `:\`
		rp, _ := windows.UTF16PtrFromString(root)
		if windows.GetDriveType(rp) == windows.DRIVE_NO_ROOT_DIR {
			continue
		}
		free, total, err := space(root)
		if err != nil {
			continue
		}
		drives = append(drives, Drive{
			Name:           volumeLabel(rp, letter+":"),
			MountPoint:     root,
			TotalSpace:     total,
			AvailableSpace: free,
		})
	}
	return drives, nil
}

func volumeLabel(root *uint16, fallback string) string {
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumeInformation(root, &buf[0], uint32(len(buf)), nil, nil, nil, nil, 0); err != nil {
		return fallback
	}
	if label := windows.UTF16ToString(buf); label != "" {
		return label
	}
	return fallback
}
