package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/infra/memory"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	store.Save(app.NewSession("s-1", memory.NewStaticSource(nil), app.SessionOptions{}, nil))
	require.True(t, mr.Exists("quiz:session:s-1"), "expected redis key to be set")
	_, ok := store.Get("s-1")
	require.True(t, ok)

	store.Delete("s-1")
	require.False(t, mr.Exists("quiz:session:s-1"), "expected redis key to be removed")
	_, ok = store.Get("s-1")
	require.False(t, ok)
}

func TestSessionStoreMarkerExpires(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	store.Save(app.NewSession("s-2", memory.NewStaticSource(nil), app.SessionOptions{}, nil))

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists("quiz:session:s-2"), "expected marker to expire")
}
