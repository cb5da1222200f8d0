package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_IsAtLeast(t *testing.T) {
	tests := []struct {
		role, min Role
		want      bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleManager, true},
		{RoleAdmin, RoleEmployee, true},
		{RoleManager, RoleAdmin, false},
		{RoleManager, RoleEmployee, true},
		{RoleEmployee, RoleManager, false},
		{Role("owner"), RoleEmployee, false},
		{RoleAdmin, Role("owner"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.IsAtLeast(tt.min), "%s >= %s", tt.role, tt.min)
	}
}

func TestParseRoleAndStatus(t *testing.T) {
	r, ok := ParseRole(" Manager ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)

	s, ok := ParseStatus("SUSPENDED")
	assert.True(t, ok)
	assert.Equal(t, StatusSuspended, s)

	_, ok = ParseStatus("deleted")
	assert.False(t, ok)
}

func TestUserFromIdentity_Defaults(t *testing.T) {
	u := UserFromIdentity(Identity{UID: "u1", Email: "a@b.com", PhotoURL: "https://img"})

	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "https://img", u.AvatarURL)
	assert.Equal(t, RoleEmployee, u.Role)
	assert.Equal(t, StatusActive, u.Status)
}

func TestMergeUser_Precedence(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	lastSignIn := created.Add(time.Hour)
	id := Identity{UID: "u1", Email: "fresh@b.com", DisplayName: "", EmailVerified: false}
	rec := &UserRecord{
		ID:            "u1",
		Email:         "stale@b.com",
		DisplayName:   "Stored Name",
		PhotoURL:      "https://stored",
		Role:          RoleManager,
		Status:        StatusSuspended,
		EmailVerified: true,
		CreatedAt:     created,
		LastSignInAt:  &lastSignIn,
	}

	u := MergeUser(id, rec)

	assert.Equal(t, "fresh@b.com", u.Email, "identity email wins when set")
	assert.Equal(t, "Stored Name", u.DisplayName, "record fills blank identity fields")
	assert.Equal(t, "https://stored", u.AvatarURL)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, RoleManager, u.Role)
	assert.Equal(t, StatusSuspended, u.Status)
	require.NotNil(t, u.CreatedAt)
	assert.True(t, created.Equal(*u.CreatedAt))
	require.NotNil(t, u.LastSignInAt)
	assert.True(t, lastSignIn.Equal(*u.LastSignInAt))
	assert.False(t, u.HasRole(RoleEmployee), "suspended users hold no role")
}

func TestMergeUser_NilRecord(t *testing.T) {
	u := MergeUser(Identity{UID: "u1", Email: "a@b.com"}, nil)
	assert.Equal(t, RoleEmployee, u.Role)
	assert.Equal(t, StatusActive, u.Status)
}

func TestUser_Equal(t *testing.T) {
	ts := time.Now()
	a := User{ID: "1", Email: "a@b.com", CreatedAt: &ts, Role: RoleAdmin, Status: StatusActive}
	b := a
	other := ts.UTC()
	b.CreatedAt = &other
	assert.True(t, a.Equal(b))

	b.Role = RoleEmployee
	assert.False(t, a.Equal(b))
}

func TestNewUserRecord(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := NewUserRecord(Identity{UID: "u1", Email: "A@B.com"}, now)

	assert.Equal(t, "a@b.com", rec.Email)
	assert.Equal(t, RoleEmployee, rec.Role)
	assert.Equal(t, StatusActive, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)
}
