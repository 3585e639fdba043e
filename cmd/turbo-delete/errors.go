package main

import (
	"errors"

	"turbo-delete/internal/config"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/exitcodes"
	"turbo-delete/internal/safety"
)

var (
	errPartial   = errors.New("some entries could not be removed")
	errCancelled = errors.New("cancelled")
)

// exitCode maps a command error to a process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, errCancelled):
		return exitcodes.Cancelled
	case errors.Is(err, errPartial):
		return exitcodes.PartialFailure
	case errors.Is(err, safety.ErrSafetyViolation):
		return exitcodes.SafetyViolation
	case errors.Is(err, engine.ErrPathNotFound):
		return exitcodes.PathNotFound
	case errors.Is(err, config.ErrInvalidConfig):
		return exitcodes.InvalidConfig
	default:
		return exitcodes.RuntimeError
	}
}
