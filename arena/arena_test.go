package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pushSegment(t *testing.T, a *Arena, text string) {
	ok := a.Append([]byte(text))
	require.True(t, ok)
	require.Equal(t, text, a.FinishString())
}

func TestArena(t *testing.T) {
	t.Run("no overflow", func(t *testing.T) {
		a := New(10, 20)
		pushSegment(t, a, "Hello")
		pushSegment(t, a, "Here")
	})

	t.Run("grows past initial size", func(t *testing.T) {
		a := New(10, 20)
		// "Hello, World!" is 13 bytes, forcing the backing slice to grow.
		pushSegment(t, a, "Hello, ")
		pushSegment(t, a, "World!")
	})

	t.Run("refuses past max size", func(t *testing.T) {
		a := New(10, 20)
		pushSegment(t, a, "Hello, ")
		pushSegment(t, a, "World!")
		pushSegment(t, a, "Lorem ")
		// 19 bytes committed so far; 8 more would exceed maxSize of 20.
		ok := a.Append([]byte("overflow"))
		require.False(t, ok)
	})

	t.Run("reset releases all segments", func(t *testing.T) {
		a := New(10, 20)
		pushSegment(t, a, "Hello")
		a.Reset()
		pushSegment(t, a, "World")
	})
}
