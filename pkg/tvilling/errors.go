package tvilling

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when a photo, collection or project file does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IsNotFound reports whether err, or anything it wraps, is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError is returned when a project file is malformed beyond repair.
type ValidationError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid project file %s", e.Path)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
