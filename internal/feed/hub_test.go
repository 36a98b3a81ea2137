package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx, rdb)

	sub := rdb.Subscribe(ctx, RedisChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := NewEvent("messages", EventInsert, map[string]any{"id": "m1"})
	hub.Publish(ctx, ev)

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, hub.id, got.Origin)
		assert.Equal(t, "messages", got.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("событие не пришло в redis канал")
	}
}

func TestHubBridgeSkipsOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx, rdb)
	go hub.runBridge()

	// Дадим мосту подписаться.
	time.Sleep(50 * time.Millisecond)

	// Событие с нашим Origin мост пропускает.
	own := NewEvent("deals", EventUpdate, nil)
	own.Origin = hub.id
	raw, err := json.Marshal(own)
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(ctx, RedisChannel, raw).Err())

	// Чужое событие попадает в очередь доставки.
	foreign := NewEvent("deals", EventUpdate, nil)
	rawForeign, err := json.Marshal(foreign)
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(ctx, RedisChannel, rawForeign).Err())

	select {
	case got := <-hub.events:
		assert.Equal(t, foreign.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("чужое событие не дошло через мост")
	}

	select {
	case got := <-hub.events:
		t.Fatalf("неожиданное событие в очереди: %v", got.ID)
	default:
	}
}
