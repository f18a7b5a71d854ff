package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg}
}

func (err *ArgumentError) Error() string {
	return err.msg
}

// FieldError is used to indicate an error with a specific field of a definition.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports missing arguments or structurally invalid input (definitions, submissions).
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// Validationf builds a ValidationError from a formatted message.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Err: NewArgumentError(fmt.Sprintf(format, args...))}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// AuthError reports a privileged action attempted without the matching credential in this message.
type AuthError struct {
	Purpose string
	Hint    string // the exact command that would authorize the action
}

func NewAuthError(purpose, hint string) error {
	return &AuthError{Purpose: purpose, Hint: hint}
}

func (err AuthError) Error() string {
	return fmt.Sprintf("not authenticated for '%s'", err.Purpose)
}

// NotFoundError reports an unknown course, assignment or user reference.
type NotFoundError struct {
	Kind string
	Ref  string
}

func NewNotFoundError(kind, ref string) error {
	return &NotFoundError{Kind: kind, Ref: ref}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", err.Kind, err.Ref)
}

// IsUserError reports whether err is one of the typed errors that are answered per command.
// Every other error is unexpected and aborts the whole message.
func IsUserError(err error) bool {
	var (
		verr *ValidationError
		aerr *AuthError
		nerr *NotFoundError
	)
	return errors.As(err, &verr) || errors.As(err, &aerr) || errors.As(err, &nerr)
}

// UserMessage renders a typed error as an "Error:" reply with the next steps.
func UserMessage(err error) string {
	var (
		verr *ValidationError
		aerr *AuthError
		nerr *NotFoundError
	)
	b := new(strings.Builder)
	switch {
	case errors.As(err, &verr):
		_, _ = fmt.Fprintf(b, "Error: %s\n", verr.Error())
		for _, fe := range verr.Fields {
			if fe.Field == "" {
				_, _ = fmt.Fprintf(b, "  %s\n", fe.Error)
				continue
			}
			_, _ = fmt.Fprintf(b, "  %s: %s\n", fe.Field, fe.Error)
		}
	case errors.As(err, &aerr):
		_, _ = fmt.Fprintf(b, "Error: you are not authenticated for '%s'. Send:\n\n%s\n\nin the same message as this command.\n", aerr.Purpose, aerr.Hint)
	case errors.As(err, &nerr):
		_, _ = fmt.Fprintf(b, "Error: %s '%s' does not exist. Check the spelling or use ':status' to list what you have access to.\n", nerr.Kind, nerr.Ref)
	default:
		_, _ = fmt.Fprintf(b, "Error: %s\n", err.Error())
	}
	return b.String()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
