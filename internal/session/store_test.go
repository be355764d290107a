package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"query-router/internal/common/config"
	"query-router/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg config.SessionConfig) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, cfg), mr
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	store, mr := newTestStore(t, config.SessionConfig{TTL: 60, MaxTurns: 10})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "abc",
		models.HistoryTurn{Sender: models.SenderUser, Content: "top products"},
		models.HistoryTurn{Sender: models.SenderAssistant, Content: "Widget leads."},
	))

	turns, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "top products", turns[0].Content)
	assert.Equal(t, models.SenderAssistant, turns[1].Sender)

	assert.Equal(t, 60*time.Second, mr.TTL(keyPrefix+"abc"))
}

func TestRedisStore_UnknownSessionIsEmpty(t *testing.T) {
	store, _ := newTestStore(t, config.SessionConfig{TTL: 60, MaxTurns: 10})

	turns, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStore_KeepsNewestTurns(t *testing.T) {
	store, _ := newTestStore(t, config.SessionConfig{TTL: 60, MaxTurns: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s", models.HistoryTurn{Sender: models.SenderUser, Content: fmt.Sprintf("msg %d", i)}))
	}

	turns, err := store.Load(ctx, "s")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "msg 2", turns[0].Content)
	assert.Equal(t, "msg 4", turns[2].Content)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newTestStore(t, config.SessionConfig{TTL: 10, MaxTurns: 5})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", models.HistoryTurn{Sender: models.SenderUser, Content: "hi"}))
	mr.FastForward(11 * time.Second)

	turns, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStore_Clear(t *testing.T) {
	store, _ := newTestStore(t, config.SessionConfig{TTL: 10, MaxTurns: 5})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", models.HistoryTurn{Sender: models.SenderUser, Content: "hi"}))
	require.NoError(t, store.Clear(ctx, "s"))

	turns, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t, config.SessionConfig{TTL: 10, MaxTurns: 5})
	mr.Close()

	_, err := store.Load(context.Background(), "s")
	assert.Error(t, err)
}
