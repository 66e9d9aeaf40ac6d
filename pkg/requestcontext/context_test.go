package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "immo/pkg/domain"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()

	assert.True(t, Actor(ctx).IsAnonymous())
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	actor := id.Actor{UserID: id.UserID(uuid.New()), Roles: []id.Role{id.RoleAdmin}}

	ctx := WithTime(context.Background(), fixed)
	ctx = WithActor(ctx, actor)
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithClientMetadata(ctx, "198.51.100.4", "curl/8.0")
	ctx = WithDevice(ctx, "Firefox 121.0 / Linux x86_64")

	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, actor.UserID, UserID(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Equal(t, "198.51.100.4", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "Firefox 121.0 / Linux x86_64", Device(ctx))
}
