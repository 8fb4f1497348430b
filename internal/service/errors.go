package service

import (
	"errors"
	"strings"

	"taskboard/internal/storage"
)

var (
	// ErrNotFound is returned when the targeted project or task does not exist.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyMember is returned when a membership already exists.
	ErrAlreadyMember = errors.New("User is already a member of this project")
	// ErrUserExists is returned when registering an email that already has credentials.
	ErrUserExists = storage.ErrUserExists
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

type violations []string

func (v *violations) check(ok bool, msg string) {
	if !ok {
		*v = append(*v, msg)
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
