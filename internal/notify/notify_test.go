package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)

	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func sample() Notification {
	return New(KindRefreshFailed, "2 of 8 panels failed to refresh",
		[]domain.Entity{domain.EntityAttackers, domain.EntitySystemHealth},
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestNewCopiesEntities(t *testing.T) {
	t.Parallel()

	entities := []domain.Entity{domain.EntityAttackers}
	n := New(KindAuthRequired, "login required", entities, time.Now())
	entities[0] = domain.EntityAlertTrends

	assert.Equal(t, domain.EntityAttackers, n.Entities[0])
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", n.ID.String())
}

func TestRedisNotifier(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := sample()
	require.NoError(t, NewRedisNotifier(pub, "twinsecure:dashboard:notifications", "console-a").Notify(context.Background(), n))

	assert.Equal(t, "twinsecure:dashboard:notifications", pub.channel)

	var got Notification
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, KindRefreshFailed, got.Kind)
	assert.Equal(t, n.Entities, got.Entities)
	assert.Equal(t, "console-a", got.Origin)

	pub.err = errors.New("connection refused")
	require.Error(t, NewRedisNotifier(pub, "x", "console-a").Notify(context.Background(), n))
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	require.NoError(t, NewLogNotifier(zap.New(core)).Notify(context.Background(), sample()))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "2 of 8 panels failed to refresh", entries[0].Message)
	assert.Equal(t, "refresh_failed", entries[0].ContextMap()["kind"])
}

func TestMultiJoinsErrors(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	failing := &fakePublisher{err: errors.New("down")}

	err := Multi{rec, NewRedisNotifier(failing, "x", "console-a"), Nop{}}.Notify(context.Background(), sample())
	require.Error(t, err)
	assert.Len(t, rec.Sent(), 1, "a failing target must not stop delivery to the others")
}

func TestHub(t *testing.T) {
	t.Parallel()

	hub := NewHub(1)
	ch, unsubscribe := hub.Subscribe()

	n := sample()
	require.NoError(t, hub.Notify(context.Background(), n))
	// Буфер полон: второе уведомление отбрасывается, а не блокирует
	require.NoError(t, hub.Notify(context.Background(), sample()))

	got := <-ch
	assert.Equal(t, n.ID, got.ID)

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)

	require.NoError(t, hub.Notify(context.Background(), n))
}

func TestDecodeRemote(t *testing.T) {
	t.Parallel()

	n := sample()
	n.Origin = "console-b"
	payload, err := json.Marshal(n)
	require.NoError(t, err)

	got, ok := decodeRemote(string(payload), "console-a", zap.NewNop())
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Message, got.Message)

	_, ok = decodeRemote(string(payload), "console-b", zap.NewNop())
	assert.False(t, ok, "own messages are already delivered locally")

	_, ok = decodeRemote("agent-1:true", "console-a", zap.NewNop())
	assert.False(t, ok)
}

func TestPauseStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, pause(ctx, time.Hour))
	assert.True(t, pause(context.Background(), time.Millisecond))
}
