package migrate_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/stockcam/internal/migrate"
	"github.com/target/stockcam/internal/testutil"
)

func TestVersions(t *testing.T) {
	versions, err := migrate.Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "0001_user_records", versions[0])
	assert.IsNonDecreasing(t, versions)
}

func TestVersionsInIgnoresNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql":   {Data: []byte("SELECT 1")},
		"m/0001_a.sql":   {Data: []byte("SELECT 1")},
		"m/README.md":    {Data: []byte("notes")},
		"m/nested/x.sql": {Data: []byte("SELECT 1")},
	}
	versions, err := migrate.VersionsIn(fsys, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a", "0002_b"}, versions)
}

func TestRunIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, migrate.Run(ctx, db))
	require.NoError(t, migrate.Run(ctx, db))

	pending, err := migrate.Pending(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
