package errors

import (
	"errors"
	"syscall"
)

// isTemporary reports whether cause is an OS resource-exhaustion error.
func isTemporary(cause error) bool {
	return errors.Is(cause, syscall.EAGAIN) || errors.Is(cause, syscall.ENOMEM)
}
