// Package arena provides the per-exchange allocator backing header storage.
//
// An Arena is a single growable byte slice. Segments are carved out of it via
// Append/Finish instead of individually heap-allocating each header name or
// value, which keeps GC pressure low on a hot request/response path. All
// segments handed out by an Arena share its lifetime: Reset invalidates every
// previously returned slice in one step, exactly the semantics a Stream needs
// to release header storage when an exchange ends.
package arena

import "github.com/indigo-web/utils/uf"

// Arena is not safe for concurrent use; per spec.md's concurrency model, it
// is exclusively owned by the Stream that created it.
type Arena struct {
	memory     []byte
	begin, pos int
	maxSize    int
}

// New returns an Arena with initialSize pre-allocated bytes, refusing to grow
// past maxSize.
func New(initialSize, maxSize int) *Arena {
	return &Arena{
		memory:  make([]byte, initialSize),
		maxSize: maxSize,
	}
}

// Append copies chars onto the arena, growing the backing slice as needed.
// It reports false without copying anything if doing so would exceed maxSize.
func (a *Arena) Append(chars []byte) (ok bool) {
	if a.pos+len(chars) > a.maxSize {
		return false
	}

	if a.pos+len(chars) > len(a.memory) {
		a.memory = append(a.memory[:a.pos], chars...)
		a.pos += len(chars)

		return true
	}

	copy(a.memory[a.pos:], chars)
	a.pos += len(chars)

	return true
}

// AppendString is Append for a string, avoiding a caller-side []byte(s) copy.
func (a *Arena) AppendString(s string) (ok bool) {
	return a.Append(uf.S2B(s))
}

// Finish closes the segment opened by preceding Append calls and returns it.
// The returned slice is only valid until the next Reset.
func (a *Arena) Finish() []byte {
	segment := a.memory[a.begin:a.pos]
	a.begin = a.pos

	return segment
}

// FinishString is Finish, viewing the segment as a string without copying.
// Safe because the arena is the exclusive owner of the underlying bytes for
// the remainder of the exchange.
func (a *Arena) FinishString() string {
	return uf.B2S(a.Finish())
}

// Reset releases every segment handed out so far, in a single step. It does
// not shrink the underlying buffer, so a Stream pooling Arenas across
// exchanges avoids re-growing it on every request.
func (a *Arena) Reset() {
	a.begin = 0
	a.pos = 0
}
