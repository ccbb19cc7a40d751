package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"post-editor-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attach(h *Hub, sessionID string, buffer int) *Client {
	c := &Client{Hub: h, SessionID: sessionID, UserID: uuid.New(), Send: make(chan []byte, buffer)}
	h.add(c)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestHubSendIsScopedToSession(t *testing.T) {
	h := NewHub(nil, "", logger.NewNopLogger())
	a1 := attach(h, "a", 4)
	a2 := attach(h, "a", 4)
	b := attach(h, "b", 4)
	assert.Equal(t, 2, h.Connected("a"))

	h.Send(Message{Type: TypeUpdate, SessionID: "a", Data: map[string]bool{"dirty": true}})

	assert.Equal(t, TypeUpdate, receive(t, a1).Type)
	assert.Equal(t, "a", receive(t, a2).SessionID)
	assert.Empty(t, b.Send)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(nil, "", logger.NewNopLogger())
	slow := attach(h, "a", 1)

	h.Send(Message{Type: TypeUpdate, SessionID: "a"})
	h.Send(Message{Type: TypeUpdate, SessionID: "a"})

	assert.Equal(t, 0, h.Connected("a"))
	<-slow.Send
	_, ok := <-slow.Send
	assert.False(t, ok, "dropped client channel is closed")

	// second removal is harmless
	h.remove(slow)
	assert.False(t, h.reply(slow, []byte("{}")))
}

func TestHubCloseSession(t *testing.T) {
	h := NewHub(nil, "", logger.NewNopLogger())
	c := attach(h, "a", 1)
	h.CloseSession("a")
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.Connected("a"))
}

func TestHubFanOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newRedis := func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h1 := NewHub(newRedis(), "editor_events", logger.NewNopLogger())
	h2 := NewHub(newRedis(), "editor_events", logger.NewNopLogger())
	go h1.Run(ctx)
	go h2.Run(ctx)

	local := attach(h1, "s", 4)
	remote := attach(h2, "s", 4)

	// wait until both subscriptions are live
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("editor_events")) == 1 && mr.PubSubNumSub("editor_events")["editor_events"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	h1.Send(Message{Type: TypeStale, SessionID: "s"})

	assert.Equal(t, TypeStale, receive(t, local).Type)
	assert.Equal(t, TypeStale, receive(t, remote).Type)

	// the origin instance does not deliver its own message twice
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, local.Send)
}
