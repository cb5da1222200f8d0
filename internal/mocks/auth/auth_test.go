package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/ports"
)

func TestMemoryRecordStore_SetGetMerge(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)

	_, err = store.Set(ctx, domainauth.UserRecord{ID: "u1", Email: "A@B.com", Role: domainauth.RoleEmployee})
	require.NoError(t, err)

	role := domainauth.RoleAdmin
	rec, err := store.Merge(ctx, "u1", ports.RecordPatch{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Email)
	assert.Equal(t, domainauth.RoleAdmin, rec.Role)

	_, err = store.Merge(ctx, "missing", ports.RecordPatch{Role: &role})
	assert.ErrorIs(t, err, ports.ErrRecordNotFound)
}

func TestMemoryRecordStore_ListPaging(t *testing.T) {
	store := NewMemoryRecordStore()
	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		store.Put(domainauth.UserRecord{ID: e, Email: e})
	}
	ctx := context.Background()

	page, err := store.List(ctx, ports.ListUsersInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "a@x.com", page.Users[0].Email)
	assert.Equal(t, "b@x.com", page.NextCursor)

	page, err = store.List(ctx, ports.ListUsersInput{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Empty(t, page.NextCursor)
}

func TestMemoryRecordStore_FailWith(t *testing.T) {
	store := NewMemoryRecordStore()
	store.FailWith = errors.New("down")

	_, err := store.EmailExists(context.Background(), "a@b.com")
	assert.Error(t, err)
}

func TestMemoryKVStore_GetDel(t *testing.T) {
	kv := NewMemoryKVStore()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v"))
	v, ok, err := kv.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, err = kv.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
