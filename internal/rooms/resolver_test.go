package rooms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Run("first non-empty signal wins", func(t *testing.T) {
		r := NewResolver()

		got := r.Resolve(
			Signal{Name: "transport", Value: ""},
			Signal{Name: "url", Value: "room-from-url"},
			Signal{Name: "fallback", Value: "room-unused"},
		)

		assert.Equal(t, "room-from-url", got)
	})

	t.Run("generates identifier when all signals absent", func(t *testing.T) {
		r := NewResolver()

		got := r.Resolve(
			Signal{Name: "transport", Value: ""},
			Signal{Name: "url", Value: ""},
		)

		require.True(t, strings.HasPrefix(got, "room-"))
		assert.Len(t, got, len("room-")+8)
	})

	t.Run("generated identifiers are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			name := GenerateRoomName()
			assert.False(t, seen[name], "duplicate room name %s", name)
			seen[name] = true
		}
	})
}

func TestResolveFreezes(t *testing.T) {
	t.Run("generated identity survives later concrete signals", func(t *testing.T) {
		r := NewResolver()

		first := r.Resolve()
		require.NotEmpty(t, first)

		second := r.Resolve(Signal{Name: "transport", Value: "room-late-arrival"})
		assert.Equal(t, first, second)
	})

	t.Run("signal identity survives changed signals", func(t *testing.T) {
		r := NewResolver()

		first := r.Resolve(Signal{Name: "transport", Value: "room-a"})
		second := r.Resolve(Signal{Name: "transport", Value: "room-b"})

		assert.Equal(t, "room-a", first)
		assert.Equal(t, "room-a", second)
	})

	t.Run("resolved reports frozen value", func(t *testing.T) {
		r := NewResolver()
		assert.Empty(t, r.Resolved())

		got := r.Resolve(Signal{Name: "url", Value: "room-x"})
		assert.Equal(t, got, r.Resolved())
	})
}
