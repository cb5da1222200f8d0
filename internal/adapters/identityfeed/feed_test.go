package identityfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/stockcam/internal/domain/auth"
)

func receive(t *testing.T, ch <-chan *domainauth.Identity) *domainauth.Identity {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for identity")
		return nil
	}
}

func TestFeed_WatchStartsWithCurrent(t *testing.T) {
	f := New()
	f.Publish(&domainauth.Identity{UID: "u1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := receive(t, f.Watch(ctx))
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)
}

func TestFeed_LatestWins(t *testing.T) {
	f := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Watch(ctx)
	f.Publish(&domainauth.Identity{UID: "a"})
	f.Publish(&domainauth.Identity{UID: "b"})
	f.Publish(nil)

	assert.Nil(t, receive(t, ch))
}

func TestFeed_CancelClosesChannel(t *testing.T) {
	f := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Watch(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return f.Watchers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFeed_CurrentIsCopy(t *testing.T) {
	f := New()
	f.Publish(&domainauth.Identity{UID: "u1", DisplayName: "A"})
	c := f.Current()
	c.DisplayName = "changed"
	assert.Equal(t, "A", f.Current().DisplayName)
}
