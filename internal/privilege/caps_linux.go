package privilege

import (
	"github.com/syndtr/gocapability/capability"
)

// canChown reports whether the effective capability set holds CAP_CHOWN
func canChown() bool {
	caps, err := capability.NewPid(0)
	if err != nil {
		return false
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_CHOWN)
}
