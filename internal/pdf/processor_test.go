package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorRejectsOversizedFile(t *testing.T) {
	p := NewProcessor()
	p.MaxFileSize = 1024

	data := bytes.Repeat([]byte{0x41}, 2048)

	_, err := p.Extract("big.pdf", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestProcessorRejectsMalformedPDF(t *testing.T) {
	p := NewProcessor()

	_, err := p.Extract("junk.pdf", []byte("this is not a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse PDF")
}

func TestProcessorClean(t *testing.T) {
	p := NewProcessor()

	t.Run("strips control characters", func(t *testing.T) {
		got := p.clean("hello\x00\x01world")
		assert.Equal(t, "helloworld", got)
	})

	t.Run("collapses runs of spaces and tabs", func(t *testing.T) {
		got := p.clean("hello \t  world")
		assert.Equal(t, "hello world", got)
	})

	t.Run("collapses blank line runs", func(t *testing.T) {
		got := p.clean("first\n\n\n\n\nsecond")
		assert.Equal(t, "first\n\nsecond", got)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		got := p.clean("\n  centered  \n")
		assert.Equal(t, "centered", got)
	})
}

func TestInMemoryContextStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryContextStore()

	t.Run("get before save", func(t *testing.T) {
		_, err := store.GetContext(ctx, "room-1")
		assert.ErrorIs(t, err, ErrNoContext)
	})

	t.Run("save and get", func(t *testing.T) {
		_, err := store.SaveContext(ctx, "room-1", &Document{
			Filename: "guide.pdf",
			NumPages: 4,
			Text:     "guide text",
		})
		require.NoError(t, err)

		rc, err := store.GetContext(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, "guide.pdf", rc.Filename)
		assert.Equal(t, 4, rc.NumPages)
		assert.Equal(t, "guide text", rc.Text)
	})

	t.Run("save replaces earlier context", func(t *testing.T) {
		_, err := store.SaveContext(ctx, "room-1", &Document{
			Filename: "revised.pdf",
			NumPages: 7,
			Text:     "revised text",
		})
		require.NoError(t, err)

		rc, err := store.GetContext(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, "revised.pdf", rc.Filename)
		assert.Equal(t, 7, rc.NumPages)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteContext(ctx, "room-1"))

		_, err := store.GetContext(ctx, "room-1")
		assert.ErrorIs(t, err, ErrNoContext)
	})
}
