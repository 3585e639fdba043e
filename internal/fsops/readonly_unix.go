//go:build !windows

package fsops

import "os"

// clearReadOnly adds the owner write bit. Symlinks are left alone since
// chmod would follow them out of the tree.
func clearReadOnly(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	perm := info.Mode().Perm()
	if perm&0o200 != 0 {
		return nil
	}
	return os.Chmod(path, perm|0o200)
}
