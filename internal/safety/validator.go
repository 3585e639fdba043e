package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSystemRoot is used when the SystemRoot environment variable is unset
const DefaultSystemRoot = `C:\Windows`

// SystemRootEnv names the environment variable holding the OS installation root
const SystemRootEnv = "SystemRoot"

var (
	ErrSafetyViolation = errors.New("SAFETY ALERT")
	ErrInvalidPath     = errors.New("invalid path")

	ErrDriveRoot     = fmt.Errorf("%w: cannot delete a drive root", ErrSafetyViolation)
	ErrSystemRoot    = fmt.Errorf("%w: cannot delete the active system directory", ErrSafetyViolation)
	ErrSystemFolder  = fmt.Errorf("%w: cannot delete core system folders", ErrSafetyViolation)
	ErrProtectedPath = fmt.Errorf("%w: path is protected by configuration", ErrSafetyViolation)
)

// Folders that may never be deleted when they sit directly under a drive root
var driveFolders = map[string]bool{
	"users":               true,
	"program files":       true,
	"program files (x86)": true,
}

// Folders that may never be deleted when they sit directly under "/"
var rootFolders = map[string]bool{
	"applications": true,
	"bin":          true,
	"boot":         true,
	"dev":          true,
	"etc":          true,
	"home":         true,
	"lib":          true,
	"lib64":        true,
	"library":      true,
	"proc":         true,
	"root":         true,
	"sbin":         true,
	"sys":          true,
	"system":       true,
	"users":        true,
	"usr":          true,
	"var":          true,
}

// Validator enforces the safety contract for every deletion target.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	systemRoot string
	protected  []string
}

// NewValidator creates a validator for the given OS installation root and
// optional additional protected paths. Extra paths protect their whole subtree.
func NewValidator(systemRoot string, extraProtected []string) *Validator {
	if strings.TrimSpace(systemRoot) == "" {
		systemRoot = DefaultSystemRoot
	}
	protected := make([]string, 0, len(extraProtected))
	for _, p := range extraProtected {
		if strings.TrimSpace(p) == "" {
			continue
		}
		protected = append(protected, Normalize(p))
	}
	return &Validator{
		systemRoot: Normalize(systemRoot),
		protected:  protected,
	}
}

// SystemRootFromEnv resolves the OS installation root from envVar,
// falling back to DefaultSystemRoot.
func SystemRootFromEnv(envVar string) string {
	if envVar == "" {
		envVar = SystemRootEnv
	}
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	return DefaultSystemRoot
}

// ValidateDeleteTarget is the single source of truth for delete authorization.
// It has no side effects. The raw input and its absolute form are both checked.
func (v *Validator) ValidateDeleteTarget(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}
	if err := v.check(path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if abs != path {
		return v.check(abs)
	}
	return nil
}

func (v *Validator) check(path string) error {
	norm := Normalize(path)
	if HasNoParent(path) || IsRoot(norm) {
		return ErrDriveRoot
	}
	if norm == v.systemRoot {
		return ErrSystemRoot
	}
	if IsSystemFolder(norm) {
		return ErrSystemFolder
	}
	if IsProtectedPath(norm, v.protected) {
		return ErrProtectedPath
	}
	return nil
}

// Normalize folds case, unifies separators to `\`, resolves "." and ".."
// segments and strips trailing separators. "C:\" becomes "c:" and "/" becomes `\`.
// Extended-length and device prefixes are removed, so `\\?\C:\Windows` and
// `C:\Windows` normalize alike and `\\?\UNC\srv\share` becomes `\\srv\share`.
func Normalize(path string) string {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(path), "/", `\`))
	switch {
	case strings.HasPrefix(s, `\\?\unc\`):
		s = `\\` + s[len(`\\?\unc\`):]
	case strings.HasPrefix(s, `\\?\`), strings.HasPrefix(s, `\\.\`), strings.HasPrefix(s, `\??\`):
		s = s[4:]
	}

	lead := ""
	switch {
	case strings.HasPrefix(s, `\\`):
		lead = `\\`
	case strings.HasPrefix(s, `\`):
		lead = `\`
	}

	var out []string
	for _, seg := range strings.Split(s[len(lead):], `\`) {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && !(len(out) == 1 && isDrive(out[0])) {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return lead + strings.Join(out, `\`)
}

// HasNoParent reports whether an absolute host path is a filesystem root
func HasNoParent(path string) bool {
	c := filepath.Clean(path)
	return filepath.IsAbs(c) && filepath.Dir(c) == c
}

// IsRoot reports whether a normalized path is a drive root, "/" or a bare UNC prefix
func IsRoot(norm string) bool {
	return norm == `\` || norm == `\\` || norm == "" || isDrive(norm)
}

// IsSystemFolder reports whether a normalized path is a well-known system
// folder directly under a drive root or directly under "/".
func IsSystemFolder(norm string) bool {
	i := strings.LastIndex(norm, `\`)
	if i < 0 {
		return false
	}
	parent, name := norm[:i], norm[i+1:]
	if isDrive(parent) {
		return driveFolders[name]
	}
	if parent == "" && !strings.HasPrefix(norm, `\\`) {
		return rootFolders[name]
	}
	return false
}

// IsProtectedPath checks if a normalized path equals or sits beneath a protected path
func IsProtectedPath(norm string, protected []string) bool {
	for _, prot := range protected {
		if hasPathPrefix(norm, prot) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if prefix == `\` {
		return strings.HasPrefix(path, `\`)
	}
	return strings.HasPrefix(path, prefix+`\`)
}

func isDrive(s string) bool {
	return len(s) == 2 && s[1] == ':' && s[0] >= 'a' && s[0] <= 'z'
}
