package devseed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/mocks"
	authmocks "github.com/target/stockcam/internal/mocks/auth"
	"github.com/target/stockcam/internal/ports"
)

func TestRun_CreatesAndAlignsRecords(t *testing.T) {
	records := authmocks.NewMemoryRecordStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	existing := domainauth.NewUserRecord(domainauth.Identity{UID: "u-clerk", Email: "clerk@example.com"}, now)
	existing.Role = domainauth.RoleManager
	records.Put(existing)

	accounts := []Account{
		{Identity: domainauth.Identity{UID: "u-admin", Email: "admin@example.com"}, Role: domainauth.RoleAdmin},
		{Identity: domainauth.Identity{UID: "u-clerk", Email: "clerk@example.com"}, Role: domainauth.RoleEmployee},
		{Identity: domainauth.Identity{UID: "u-temp", Email: "temp@example.com"}, Role: "intern"},
	}
	require.NoError(t, Run(ctx, Options{Records: records, Now: func() time.Time { return now }}, accounts))

	admin, err := records.Get(ctx, "u-admin")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, admin.Role)
	assert.Equal(t, domainauth.StatusActive, admin.Status)

	clerk, err := records.Get(ctx, "u-clerk")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleEmployee, clerk.Role)

	temp, err := records.Get(ctx, "u-temp")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleEmployee, temp.Role, "unknown roles fall back to employee")

	// Running again changes nothing.
	require.NoError(t, Run(ctx, Options{Records: records}, accounts))
	assert.Equal(t, 3, records.Len())
}

func TestRun_ReportsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockUserRecordStore(ctrl)
	ctx := context.Background()

	store.EXPECT().Get(gomock.Any(), "u1").Return(nil, errors.New("db offline"))
	store.EXPECT().Get(gomock.Any(), "u2").Return(nil, ports.ErrRecordNotFound)
	store.EXPECT().Set(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec domainauth.UserRecord) (*domainauth.UserRecord, error) {
			assert.Equal(t, domainauth.RoleManager, rec.Role)
			return &rec, nil
		})

	err := Run(ctx, Options{Records: store}, []Account{
		{Identity: domainauth.Identity{UID: "u1", Email: "a@example.com"}, Role: domainauth.RoleAdmin},
		{Identity: domainauth.Identity{UID: "u2", Email: "b@example.com"}, Role: domainauth.RoleManager},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 seed errors")
}

func TestRun_RequiresRecords(t *testing.T) {
	assert.Error(t, Run(context.Background(), Options{}, nil))
}
