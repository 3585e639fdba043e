//go:build !linux && !windows

package privilege

import "os"

func canChown() bool {
	return os.Geteuid() == 0
}
