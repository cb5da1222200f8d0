package httpx

import (
	domainauth "github.com/target/stockcam/internal/domain/auth"
)

// StateView is the wire form of an authentication state.
type StateView struct {
	Kind    domainauth.StateKind `json:"kind"`
	Message string               `json:"message,omitempty"`
	User    *domainauth.User     `json:"user,omitempty"`
	Error   *ErrorView           `json:"error,omitempty"`
}

// ErrorView exposes the code and user-facing text of a failed operation.
// Diagnostic messages stay in the logs.
type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewStateView renders s. Error and Success carry the session they settle to.
func NewStateView(s domainauth.State) StateView {
	if s == nil {
		s = domainauth.InitialState{}
	}
	v := StateView{
		Kind:    s.Kind(),
		Message: domainauth.MessageOf(s),
		User:    domainauth.SessionOf(s),
	}
	if es, ok := s.(domainauth.ErrorState); ok {
		v.Error = &ErrorView{Code: es.Code, Message: es.UserMessage}
	}
	return v
}
