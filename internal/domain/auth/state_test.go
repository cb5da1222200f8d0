package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Kinds(t *testing.T) {
	states := map[StateKind]State{
		KindInitial:         InitialState{},
		KindLoading:         LoadingState{},
		KindAuthenticated:   AuthenticatedState{},
		KindUnauthenticated: UnauthenticatedState{},
		KindError:           ErrorState{},
		KindSuccess:         SuccessState{},
	}
	for kind, s := range states {
		assert.Equal(t, kind, s.Kind())
	}
}

func TestSessionOf(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.com"}

	got := SessionOf(AuthenticatedState{User: u})
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)

	assert.NotNil(t, SessionOf(SuccessState{Session: &u}))
	assert.NotNil(t, SessionOf(ErrorState{Session: &u}))
	assert.Nil(t, SessionOf(SuccessState{}))
	assert.Nil(t, SessionOf(LoadingState{}))
	assert.Nil(t, SessionOf(UnauthenticatedState{}))
}

func TestSettled(t *testing.T) {
	u := User{ID: "u1"}

	assert.Equal(t, AuthenticatedState{User: u}, Settled(SuccessState{Message: "sent", Session: &u}))
	assert.Equal(t, UnauthenticatedState{}, Settled(SuccessState{Message: "sent"}))
	assert.Equal(t, AuthenticatedState{User: u}, Settled(ErrorState{Session: &u}))
	assert.Equal(t, UnauthenticatedState{}, Settled(ErrorState{}))
	assert.Equal(t, LoadingState{Message: "x"}, Settled(LoadingState{Message: "x"}))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "shown", MessageOf(ErrorState{Message: "technical", UserMessage: "shown"}))
	assert.Equal(t, "signed out", MessageOf(UnauthenticatedState{Message: "signed out"}))
	assert.Empty(t, MessageOf(InitialState{}))
}
