package privilege

import (
	"fmt"
	"os/exec"
	"os/user"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

// CREATE_NO_WINDOW
const createNoWindow = 0x08000000

type aclReclaimer struct {
	logger zerolog.Logger
}

func newPlatform(logger zerolog.Logger) Reclaimer {
	return &aclReclaimer{logger: logger}
}

// Reclaim runs takeown then icacls over the tree. Both tools continue past
// entries they cannot touch.
func (r *aclReclaimer) Reclaim(root string) error {
	var errs []string

	if err := r.run("takeown", "/f", root, "/r", "/d", "y"); err != nil {
		errs = append(errs, err.Error())
	}

	principal := currentPrincipal()
	if principal != "" {
		if err := r.run("icacls", root, "/grant", principal+":F", "/t", "/c", "/q"); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("reclaim %s: %s", root, strings.Join(errs, "; "))
	}
	return nil
}

func (r *aclReclaimer) run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Debug().Str("tool", name).Bytes("output", out).Err(err).Msg("reclaim tool failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func currentPrincipal() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
