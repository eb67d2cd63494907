package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(id string, speaker Speaker, text string, at int64) Segment {
	return Segment{ID: id, Speaker: speaker, Text: text, FirstReceived: at}
}

func kinds(entries []Entry) []Kind {
	out := make([]Kind, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Kind)
	}
	return out
}

func TestMergeOrdering(t *testing.T) {
	agent := []Segment{
		seg("a1", SpeakerAgent, "one", 1),
		seg("a2", SpeakerAgent, "three", 3),
		seg("a3", SpeakerAgent, "five", 5),
	}
	user := []Segment{
		seg("u1", SpeakerUser, "two", 2),
		seg("u2", SpeakerUser, "four", 4),
	}

	merged := Merge(agent, user)

	require.Len(t, merged, 5)
	assert.Equal(t, []Kind{KindAgent, KindUser, KindAgent, KindUser, KindAgent}, kinds(merged))
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].OrderingKey, merged[i].OrderingKey)
	}
}

func TestMergeIdempotence(t *testing.T) {
	agent := []Segment{
		seg("a1", SpeakerAgent, "hello", 1),
		seg("a2", SpeakerAgent, "world", 2),
	}
	user := []Segment{
		seg("u1", SpeakerUser, "hi", 1),
		seg("u2", SpeakerUser, "there", 3),
	}

	first := Merge(agent, user)
	second := Merge(agent, user)

	assert.Equal(t, first, second)
}

func TestMergeRevisionReplacement(t *testing.T) {
	user := []Segment{
		seg("u1", SpeakerUser, "hel", 1),
		seg("u1", SpeakerUser, "hello", 1),
	}

	merged := Merge(nil, user)

	require.Len(t, merged, 1)
	assert.Equal(t, "u1", merged[0].ID)
	assert.Equal(t, "hello", merged[0].Text)
}

func TestMergeEmptySides(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		assert.Empty(t, Merge(nil, nil))
	})

	t.Run("only agent", func(t *testing.T) {
		merged := Merge([]Segment{seg("a1", SpeakerAgent, "solo", 1)}, nil)
		require.Len(t, merged, 1)
		assert.Equal(t, KindAgent, merged[0].Kind)
	})

	t.Run("only user", func(t *testing.T) {
		merged := Merge(nil, []Segment{seg("u1", SpeakerUser, "solo", 1)})
		require.Len(t, merged, 1)
		assert.Equal(t, KindUser, merged[0].Kind)
	})
}

func TestMergeTies(t *testing.T) {
	// Equal ordering keys across sources keep the agent segment first,
	// matching the relative order of the combined input
	agent := []Segment{seg("a1", SpeakerAgent, "agent", 7)}
	user := []Segment{seg("u1", SpeakerUser, "user", 7)}

	merged := Merge(agent, user)

	require.Len(t, merged, 2)
	assert.Equal(t, "a1", merged[0].ID)
	assert.Equal(t, "u1", merged[1].ID)
}

func TestMergeSameSourceTies(t *testing.T) {
	// Same source, same timestamp, different IDs: stable input order
	user := []Segment{
		seg("u1", SpeakerUser, "first", 4),
		seg("u2", SpeakerUser, "second", 4),
	}

	merged := Merge(nil, user)

	require.Len(t, merged, 2)
	assert.Equal(t, "u1", merged[0].ID)
	assert.Equal(t, "u2", merged[1].ID)
}

func TestTimelineObserve(t *testing.T) {
	t.Run("incremental merge matches recompute", func(t *testing.T) {
		agent := []Segment{
			seg("a1", SpeakerAgent, "one", 1),
			seg("a2", SpeakerAgent, "three", 3),
		}
		user := []Segment{
			seg("u1", SpeakerUser, "two", 2),
		}

		timeline := NewTimeline()
		timeline.Observe(agent[0])
		timeline.Observe(user[0])
		timeline.Observe(agent[1])

		assert.Equal(t, Merge(agent, user), timeline.Merge())
	})

	t.Run("revision keeps position", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.Observe(seg("a1", SpeakerAgent, "first", 1))
		timeline.Observe(seg("u1", SpeakerUser, "reply", 2))
		timeline.Observe(seg("a1", SpeakerAgent, "first, revised", 1))

		merged := timeline.Merge()
		require.Len(t, merged, 2)
		assert.Equal(t, "a1", merged[0].ID)
		assert.Equal(t, "first, revised", merged[0].Text)
	})

	t.Run("out of order delivery is re-sorted", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.Observe(seg("u2", SpeakerUser, "later", 5))
		timeline.Observe(seg("u1", SpeakerUser, "earlier", 2))

		merged := timeline.Merge()
		require.Len(t, merged, 2)
		assert.Equal(t, "u1", merged[0].ID)
		assert.Equal(t, "u2", merged[1].ID)
	})

	t.Run("revision after re-sort finds the segment", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.Observe(seg("u2", SpeakerUser, "later", 5))
		timeline.Observe(seg("u1", SpeakerUser, "earlier", 2))
		timeline.Observe(seg("u2", SpeakerUser, "later, revised", 5))

		merged := timeline.Merge()
		require.Len(t, merged, 2)
		assert.Equal(t, "later, revised", merged[1].Text)
	})
}

func TestTimelineSystemEntries(t *testing.T) {
	t.Run("system entry lands after current entries", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.Observe(seg("a1", SpeakerAgent, "hello", 10))

		entry := timeline.AppendSystem("Context updated: 2 pages")
		assert.Equal(t, KindSystem, entry.Kind)
		assert.NotEmpty(t, entry.ID)

		merged := timeline.Merge()
		require.Len(t, merged, 2)
		assert.Equal(t, KindSystem, merged[1].Kind)
		assert.Greater(t, merged[1].OrderingKey, merged[0].OrderingKey)
	})

	t.Run("system entry stays before later segments", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.Observe(seg("a1", SpeakerAgent, "hello", 10))
		timeline.AppendSystem("Context updated: 2 pages")
		timeline.Observe(seg("u1", SpeakerUser, "thanks", 20))

		merged := timeline.Merge()
		require.Len(t, merged, 3)
		assert.Equal(t, []Kind{KindAgent, KindSystem, KindUser}, kinds(merged))
	})

	t.Run("system entries only", func(t *testing.T) {
		timeline := NewTimeline()
		timeline.AppendSystem("one")
		timeline.AppendSystem("two")

		merged := timeline.Merge()
		require.Len(t, merged, 2)
		assert.Equal(t, "one", merged[0].Text)
		assert.Equal(t, "two", merged[1].Text)
	})

	t.Run("empty reflects system entries", func(t *testing.T) {
		timeline := NewTimeline()
		assert.True(t, timeline.Empty())

		timeline.AppendSystem("announcement")
		assert.False(t, timeline.Empty())
		assert.Equal(t, 1, timeline.Len())
	})
}
