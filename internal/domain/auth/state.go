package auth

// StateKind discriminates the variants of State.
type StateKind string

const (
	KindInitial         StateKind = "initial"
	KindLoading         StateKind = "loading"
	KindAuthenticated   StateKind = "authenticated"
	KindUnauthenticated StateKind = "unauthenticated"
	KindError           StateKind = "error"
	KindSuccess         StateKind = "success"
)

// State is the authentication status of the application. Exactly one
// variant is current at a time; the set of variants is closed.
type State interface {
	Kind() StateKind
	isState()
}

// InitialState holds before the first session check resolves.
type InitialState struct{}

// LoadingState holds while an operation is in flight.
type LoadingState struct {
	Message string
}

// AuthenticatedState is the signed-in steady state.
type AuthenticatedState struct {
	User User
}

// UnauthenticatedState is the signed-out steady state.
type UnauthenticatedState struct {
	Message string
}

// ErrorState records the last failed operation. It does not itself imply
// sign-in status; Session is the user that was signed in when the
// operation started, if any.
type ErrorState struct {
	Message     string
	UserMessage string
	Code        string
	Session     *User
}

// SuccessState reports a side operation that did not change sign-in status.
// It is transient and reverts based on whether Session is set.
type SuccessState struct {
	Message string
	Session *User
}

func (InitialState) Kind() StateKind         { return KindInitial }
func (LoadingState) Kind() StateKind         { return KindLoading }
func (AuthenticatedState) Kind() StateKind   { return KindAuthenticated }
func (UnauthenticatedState) Kind() StateKind { return KindUnauthenticated }
func (ErrorState) Kind() StateKind           { return KindError }
func (SuccessState) Kind() StateKind         { return KindSuccess }

func (InitialState) isState()         {}
func (LoadingState) isState()         {}
func (AuthenticatedState) isState()   {}
func (UnauthenticatedState) isState() {}
func (ErrorState) isState()           {}
func (SuccessState) isState()         {}

// SessionOf returns the session attached to s, if any.
func SessionOf(s State) *User {
	switch st := s.(type) {
	case AuthenticatedState:
		u := st.User
		return &u
	case ErrorState:
		return cloneUser(st.Session)
	case SuccessState:
		return cloneUser(st.Session)
	default:
		return nil
	}
}

// IsAuthenticated reports whether s is the signed-in steady state.
func IsAuthenticated(s State) bool {
	_, ok := s.(AuthenticatedState)
	return ok
}

// Settled returns the steady state a transient state reverts to.
func Settled(s State) State {
	switch st := s.(type) {
	case ErrorState:
		return settledFor(st.Session)
	case SuccessState:
		return settledFor(st.Session)
	default:
		return s
	}
}

func settledFor(session *User) State {
	if session != nil {
		return AuthenticatedState{User: *session}
	}
	return UnauthenticatedState{}
}

// MessageOf returns the user-facing message carried by s, if any.
func MessageOf(s State) string {
	switch st := s.(type) {
	case LoadingState:
		return st.Message
	case UnauthenticatedState:
		return st.Message
	case ErrorState:
		return st.UserMessage
	case SuccessState:
		return st.Message
	default:
		return ""
	}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
