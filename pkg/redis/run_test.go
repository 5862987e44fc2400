package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunEventStreamRoundTrip(t *testing.T) {
	finished := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	event := RunEvent{ID: "run-1", Chain: "aptos", Kind: "generic", Nodes: 120, InvalidIPs: 2, FinishedAt: finished}

	values, err := event.Values()
	require.NoError(t, err)
	assert.Equal(t, "aptos", values["chain"])
	assert.Equal(t, "120", values["nodes"])
	assert.Equal(t, "2024-05-01T03:00:00Z", values["finished_at"])

	got, err := ParseRunEvent(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, "1-0", got.StreamID)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Nodes, got.Nodes)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestParseRunEventRejectsForeignEntries(t *testing.T) {
	_, err := ParseRunEvent(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"chain": "aptos"}})
	require.Error(t, err)

	_, err = ParseRunEvent(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"payload": "{"}})
	require.Error(t, err)
}

func TestRunChannel(t *testing.T) {
	assert.Equal(t, "nodedist:flow:run.completed", RunChannel("flow"))
}

// TestClientStream needs a Redis server; set REDIS_TEST_ADDR to run it.
func TestClientStream(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	stream := "nodedist:test:runs"
	require.NoError(t, rdb.Del(ctx, stream).Err())

	c := Wrap(rdb, zaptest.NewLogger(t), 10)
	defer c.Close()
	require.NoError(t, c.Health(ctx))

	for i := 0; i < 3; i++ {
		require.NotEmpty(t, c.XAdd(ctx, stream, map[string]interface{}{"n": i}))
	}
	msgs, err := c.XRevRange(ctx, stream, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "2", msgs[0].Values["n"])
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_STREAM_MAXLEN", "0")

	opts, err := OptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Redis.Addr)
	assert.Equal(t, 3, opts.Redis.DB)
	assert.Zero(t, opts.StreamMaxLen)

	t.Setenv("REDIS_URL", "redis://:secret@other:6379/5")
	opts, err = OptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "other:6379", opts.Redis.Addr)
	assert.Equal(t, "secret", opts.Redis.Password)
	assert.Equal(t, 5, opts.Redis.DB)

	t.Setenv("REDIS_URL", "http://nope")
	_, err = OptionsFromEnv()
	require.Error(t, err)
}

// TestAnnounce needs a Redis server; set REDIS_TEST_ADDR to run it.
func TestAnnounce(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Del(ctx, RunStream).Err())

	sub := rdb.Subscribe(ctx, RunChannel("aptos"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	c := Wrap(rdb, zaptest.NewLogger(t), 10)
	defer c.Close()
	id := c.Announce(ctx, RunEvent{ID: "run-1", Chain: "aptos", Nodes: 4, FinishedAt: time.Now()})
	require.NotEmpty(t, id)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"run-1"`)

	msgs, err := c.XRevRange(ctx, RunStream, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
}
