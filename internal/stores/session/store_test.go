package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	t.Run("create and get", func(t *testing.T) {
		created, err := store.CreateSession(ctx, "room-test1")
		require.NoError(t, err)
		assert.Equal(t, "room-test1", created.RoomID)

		got, err := store.GetSession(ctx, "room-test1")
		require.NoError(t, err)
		assert.Same(t, created, got)
	})

	t.Run("create is idempotent", func(t *testing.T) {
		first, err := store.CreateSession(ctx, "room-test2")
		require.NoError(t, err)

		second, err := store.CreateSession(ctx, "room-test2")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("get missing session", func(t *testing.T) {
		_, err := store.GetSession(ctx, "room-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := store.CreateSession(ctx, "room-test3")
		require.NoError(t, err)

		require.NoError(t, store.DeleteSession(ctx, "room-test3"))

		_, err = store.GetSession(ctx, "room-test3")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, store.DeleteSession(ctx, "room-test3"), ErrNotFound)
	})
}

func TestInMemoryStoreTimeline(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.CreateSession(ctx, "room-tl")
	require.NoError(t, err)

	t.Run("segments build the merged timeline", func(t *testing.T) {
		require.NoError(t, store.SaveSegment(ctx, "room-tl", seg("a1", SpeakerAgent, "hello", 1)))
		require.NoError(t, store.SaveSegment(ctx, "room-tl", seg("u1", SpeakerUser, "hi", 2)))

		entries, err := store.GetTimeline(ctx, "room-tl")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, KindAgent, entries[0].Kind)
		assert.Equal(t, KindUser, entries[1].Kind)
	})

	t.Run("segment revision replaces text", func(t *testing.T) {
		require.NoError(t, store.SaveSegment(ctx, "room-tl", seg("u1", SpeakerUser, "hi there", 2)))

		entries, err := store.GetTimeline(ctx, "room-tl")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "hi there", entries[1].Text)
	})

	t.Run("system entry appended at end", func(t *testing.T) {
		entry, err := store.AppendSystem(ctx, "room-tl", "Context updated: 3 pages")
		require.NoError(t, err)
		assert.Equal(t, KindSystem, entry.Kind)

		entries, err := store.GetTimeline(ctx, "room-tl")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, KindSystem, entries[2].Kind)
	})

	t.Run("invalid speaker rejected", func(t *testing.T) {
		err := store.SaveSegment(ctx, "room-tl", Segment{ID: "x", Speaker: "narrator", Text: "no"})
		assert.Error(t, err)
	})

	t.Run("segment for missing session", func(t *testing.T) {
		err := store.SaveSegment(ctx, "room-missing", seg("a1", SpeakerAgent, "hello", 1))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryStoreListIdleRooms(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	fresh, err := store.CreateSession(ctx, "room-fresh")
	require.NoError(t, err)

	stale, err := store.CreateSession(ctx, "room-stale")
	require.NoError(t, err)
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)

	rooms, err := store.ListIdleRooms(ctx, time.Now().UTC().Add(-1*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"room-stale"}, rooms)

	_ = fresh
}
