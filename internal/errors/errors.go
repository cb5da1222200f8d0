package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of authentication failure categories surfaced to callers.
type Kind string

const (
	KindInvalidCredentials      Kind = "invalid-credentials"
	KindUserNotFound            Kind = "user-not-found"
	KindEmailAlreadyInUse       Kind = "email-already-in-use"
	KindWeakPassword            Kind = "weak-password"
	KindTooManyRequests         Kind = "too-many-requests"
	KindUserDisabled            Kind = "user-disabled"
	KindOperationNotAllowed     Kind = "operation-not-allowed"
	KindInsufficientPermissions Kind = "insufficient-permissions"
	KindSessionExpired          Kind = "session-expired"
	KindNetwork                 Kind = "network-error"
	KindServer                  Kind = "server-error"
	KindInvalidEmail            Kind = "invalid-email"
	KindPasswordTooShort        Kind = "password-too-short"
	KindRequiredField           Kind = "required-field"
	KindUnknown                 Kind = "unknown"
)

// userMessages holds the user-safe text shown for each kind.
var userMessages = map[Kind]string{
	KindInvalidCredentials:      "Invalid email or password. Please try again.",
	KindUserNotFound:            "No account found with this email address.",
	KindEmailAlreadyInUse:       "An account already exists with this email address.",
	KindWeakPassword:            "Password is too weak. Please choose a stronger password.",
	KindTooManyRequests:         "Too many attempts. Please wait a moment and try again.",
	KindUserDisabled:            "This account has been disabled. Please contact your administrator.",
	KindOperationNotAllowed:     "This operation is not allowed.",
	KindInsufficientPermissions: "You do not have permission to perform this action.",
	KindSessionExpired:          "Your session has expired. Please sign in again.",
	KindNetwork:                 "Network error. Please check your connection and try again.",
	KindServer:                  "Something went wrong on our end. Please try again later.",
	KindInvalidEmail:            "Please enter a valid email address.",
	KindPasswordTooShort:        "Password must be at least 6 characters long.",
	KindRequiredField:           "This field is required.",
	KindUnknown:                 "An unexpected error occurred. Please try again.",
}

// UserMessage returns the default user-safe message for the kind.
func (k Kind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// AppError is a classified authentication failure. Message and Code are
// diagnostic; UserMessage is the only text meant for end users.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Kind Kind
	// Code is the raw backend code that produced this error, or the kind when raised locally.
	Code        string
	Message     string
	UserMessage string
	// Field is the input that failed validation (optional).
	Field string
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New creates an AppError of the given kind with the kind's default user message.
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:        kind,
		Code:        string(kind),
		Message:     message,
		UserMessage: kind.UserMessage(),
	}
}

// Newf creates an AppError with a formatted technical message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, kind Kind, message string) *AppError {
	if err == nil {
		return nil
	}
	e := New(kind, message)
	e.Cause = err
	return e
}

func InvalidCredentials() *AppError {
	return New(KindInvalidCredentials, "invalid credentials")
}

func UserNotFound(message string) *AppError {
	return New(KindUserNotFound, message)
}

func EmailAlreadyInUse(email string) *AppError {
	return Newf(KindEmailAlreadyInUse, "email %q is already registered", email)
}

func TooManyRequests(message string) *AppError {
	return New(KindTooManyRequests, message)
}

func OperationNotAllowed(message string) *AppError {
	return New(KindOperationNotAllowed, message)
}

func InsufficientPermissions(message string) *AppError {
	return New(KindInsufficientPermissions, message)
}

func SessionExpired(message string) *AppError {
	return New(KindSessionExpired, message)
}

func Server(message string) *AppError {
	return New(KindServer, message)
}

// InvalidEmail reports a malformed email address for the named field.
func InvalidEmail(field string) *AppError {
	e := New(KindInvalidEmail, "invalid email format")
	e.Field = field
	return e
}

// PasswordTooShort reports a password below the minimum length.
func PasswordTooShort(field string, minLength int) *AppError {
	e := Newf(KindPasswordTooShort, "password shorter than %d characters", minLength)
	e.UserMessage = fmt.Sprintf("Password must be at least %d characters long.", minLength)
	e.Field = field
	return e
}

// RequiredField reports a missing or blank input; the field name is part of the user message.
func RequiredField(field string) *AppError {
	e := Newf(KindRequiredField, "%s is required", field)
	e.UserMessage = fmt.Sprintf("%s is required.", displayField(field))
	e.Field = field
	return e
}

// InvalidField reports an input that is present but unacceptable.
func InvalidField(field, message string) *AppError {
	e := New(KindRequiredField, message)
	e.UserMessage = fmt.Sprintf("%s is invalid.", displayField(field))
	e.Field = field
	return e
}

func displayField(field string) string {
	if field == "" {
		return "Field"
	}
	b := []byte(field)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// KindOf returns the Kind carried by err, or KindUnknown if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Kind == kind
}

// IsAppError reports whether err carries an AppError at all.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func IsInvalidCredentials(err error) bool {
	return Is(err, KindInvalidCredentials)
}

func IsUserNotFound(err error) bool {
	return Is(err, KindUserNotFound)
}

func IsEmailAlreadyInUse(err error) bool {
	return Is(err, KindEmailAlreadyInUse)
}

func IsInsufficientPermissions(err error) bool {
	return Is(err, KindInsufficientPermissions)
}

func IsSessionExpired(err error) bool {
	return Is(err, KindSessionExpired)
}

// IsValidation reports whether err was raised by local input validation.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidEmail, KindPasswordTooShort, KindRequiredField:
		return IsAppError(err)
	default:
		return false
	}
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Field
	}
	return ""
}

// UserMessageOf returns the user-safe message for any error.
func UserMessageOf(err error) string {
	return ClassifyError(err).UserMessage
}
