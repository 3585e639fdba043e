package fsops

import "errors"

// ErrPathNotFound is returned when a target does not exist at call time
var ErrPathNotFound = errors.New("path not found")
