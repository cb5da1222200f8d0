package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	apperrors "github.com/target/stockcam/internal/errors"
)

const maxBodyBytes = 1 << 16

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// statusForKind maps an error kind to the HTTP status reported for it.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidCredentials, apperrors.KindSessionExpired:
		return http.StatusUnauthorized
	case apperrors.KindUserDisabled, apperrors.KindInsufficientPermissions, apperrors.KindOperationNotAllowed:
		return http.StatusForbidden
	case apperrors.KindUserNotFound:
		return http.StatusNotFound
	case apperrors.KindEmailAlreadyInUse:
		return http.StatusConflict
	case apperrors.KindInvalidEmail, apperrors.KindPasswordTooShort,
		apperrors.KindRequiredField, apperrors.KindWeakPassword:
		return http.StatusUnprocessableEntity
	case apperrors.KindTooManyRequests:
		return http.StatusTooManyRequests
	case apperrors.KindNetwork:
		return http.StatusServiceUnavailable
	case apperrors.KindServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusForState picks the status for an operation that reported failure.
// Without an Error state the operation was refused for lack of a session.
func statusForState(s domainauth.State) int {
	if es, ok := s.(domainauth.ErrorState); ok {
		return statusForKind(apperrors.Classify(es.Code, "").Kind)
	}
	return http.StatusUnauthorized
}
