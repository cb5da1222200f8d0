package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// BackendError is the raw failure reported by an identity backend adapter.
// Code uses the backend's own vocabulary; Classify maps it into a Kind.
type BackendError struct {
	Code    string
	Message string
	Cause   error
}

// Backend creates a BackendError.
func Backend(code, message string) *BackendError {
	return &BackendError{Code: code, Message: message}
}

// BackendWrap creates a BackendError around an underlying transport error.
func BackendWrap(err error, code, message string) *BackendError {
	return &BackendError{Code: code, Message: message, Cause: err}
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "identity backend error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Code)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// backendCodes maps normalized backend codes, including known aliases, to kinds.
var backendCodes = map[string]Kind{
	"invalid-credentials":         KindInvalidCredentials,
	"invalid-credential":          KindInvalidCredentials,
	"invalid-login-credentials":   KindInvalidCredentials,
	"wrong-password":              KindInvalidCredentials,
	"invalid-grant":               KindInvalidCredentials,
	"invalid-password":            KindInvalidCredentials,
	"user-not-found":              KindUserNotFound,
	"email-already-in-use":        KindEmailAlreadyInUse,
	"email-exists":                KindEmailAlreadyInUse,
	"weak-password":               KindWeakPassword,
	"too-many-requests":           KindTooManyRequests,
	"too-many-attempts-try-later": KindTooManyRequests,
	"user-disabled":               KindUserDisabled,
	"operation-not-allowed":       KindOperationNotAllowed,
	"unsupported-grant-type":      KindOperationNotAllowed,
	"unauthorized-client":         KindOperationNotAllowed,
	"insufficient-permissions":    KindInsufficientPermissions,
	"permission-denied":           KindInsufficientPermissions,
	"session-expired":             KindSessionExpired,
	"requires-recent-login":       KindSessionExpired,
	"user-token-expired":          KindSessionExpired,
	"token-expired":               KindSessionExpired,
	"no-current-user":             KindSessionExpired,
	"network-error":               KindNetwork,
	"network-request-failed":      KindNetwork,
	"unavailable":                 KindNetwork,
	"temporarily-unavailable":     KindNetwork,
	"deadline-exceeded":           KindNetwork,
	"server-error":                KindServer,
	"internal-error":              KindServer,
	"invalid-email":               KindInvalidEmail,
	"password-too-short":          KindPasswordTooShort,
	"required-field":              KindRequiredField,
	"missing-email":               KindRequiredField,
	"missing-password":            KindRequiredField,
}

// NormalizeCode lowercases a backend code, strips a leading "auth/" namespace,
// and folds underscores and spaces into dashes.
func NormalizeCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.TrimPrefix(code, "auth/")
	code = strings.NewReplacer("_", "-", " ", "-").Replace(code)
	return code
}

// Classify maps a raw backend code to an AppError. Unknown codes map to KindUnknown.
func Classify(rawCode, rawMessage string) *AppError {
	code := NormalizeCode(rawCode)
	kind, ok := backendCodes[code]
	if !ok {
		kind = KindUnknown
	}

	message := strings.TrimSpace(rawMessage)
	if message == "" {
		message = string(kind)
	}
	if code == "" {
		code = string(kind)
	}

	return &AppError{
		Kind:        kind,
		Code:        code,
		Message:     message,
		UserMessage: kind.UserMessage(),
	}
}

// ClassifyError maps any error to an AppError. It never returns nil and never panics.
func ClassifyError(err error) *AppError {
	if err == nil {
		return New(KindUnknown, "unknown error")
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr != nil {
		classified := Classify(backendErr.Code, backendErr.Message)
		classified.Cause = err
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, KindNetwork, "request timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(err, KindNetwork, "network failure")
	}

	return Wrap(err, KindUnknown, "unclassified error")
}
