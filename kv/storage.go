// Package kv implements the ordered, case-insensitive header multimap
// consumed by package h1. It is grounded on the teacher's kv.Storage: linear
// search over a pairs slice, which for the small entry counts a single
// header block holds is faster and allocates less than a map.
package kv

import (
	"fmt"
	"iter"
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

// Entry is a single (name, value) pair. Name is always lowercase, including
// for pseudo-headers such as ":method". Meta is a flag stored with the
// entry. The parser sets it only on a Host field-line rewritten to
// :authority; the pseudo-headers it takes from the request-line (:method,
// and :path or :authority) carry Meta false.
type Entry struct {
	Name  string
	Value []byte
	Meta  bool
}

// Allocator is the subset of arena.Arena that Headers needs to copy values
// into owned, arena-backed storage. Accepting the interface rather than the
// concrete type keeps this package free of an import cycle with arena and
// lets tests supply a trivial in-place allocator.
type Allocator interface {
	Append(chars []byte) bool
	Finish() []byte
}

// Headers is an ordered multimap of header name to value, preserving
// insertion order across duplicate names. The zero value is not usable;
// construct with New.
type Headers struct {
	alloc   Allocator
	entries []Entry
}

// New returns an empty Headers backed by alloc for value storage.
func New(alloc Allocator) *Headers {
	return &Headers{alloc: alloc}
}

// NewPrealloc is New with the entries slice pre-sized, for callers who know
// roughly how many headers to expect (e.g. Limits.MaxHeaders).
func NewPrealloc(alloc Allocator, n int) *Headers {
	return &Headers{
		alloc:   alloc,
		entries: make([]Entry, 0, n),
	}
}

// Append copies name and value into owned storage, lowercasing name, and
// appends a new entry. value is taken as []byte (rather than string) so a
// caller holding an unowned slice straight out of a read buffer never has
// to pay for an intermediate string conversion before it gets copied into
// the arena anyway. It reports false if the allocator refused the value
// (out of arena space).
func (h *Headers) Append(name string, value []byte, meta bool) bool {
	if !h.alloc.Append(value) {
		return false
	}

	owned := h.alloc.Finish()
	h.entries = append(h.entries, Entry{
		Name:  strings.ToLower(name),
		Value: owned,
		Meta:  meta,
	})

	return true
}

// AppendOwned takes ownership of name and value slices the caller has
// already allocated (typically straight off the arena during parsing). name
// must already be lowercase; AppendOwned does not lowercase it, so that a
// caller performing an in-place lowering pass during scanning doesn't pay to
// redo it here.
func (h *Headers) AppendOwned(name string, value []byte, meta bool) {
	h.entries = append(h.entries, Entry{Name: name, Value: value, Meta: meta})
}

// GetOnly returns the single entry stored under name. It reports an error if
// more than one entry matches, per spec.md's "safe policy" for headers like
// :authority where duplicates are a smuggling smell.
func (h *Headers) GetOnly(name string) (Entry, bool, error) {
	var (
		found Entry
		count int
	)

	for _, e := range h.entries {
		if strcomp.EqualFold(e.Name, name) {
			if count == 0 {
				found = e
			}
			count++
		}
	}

	switch count {
	case 0:
		return Entry{}, false, nil
	case 1:
		return found, true, nil
	default:
		return Entry{}, false, fmt.Errorf("kv: multiple entries for %q", name)
	}
}

// Contains reports whether at least one entry is stored under name.
func (h *Headers) Contains(name string) bool {
	for _, e := range h.entries {
		if strcomp.EqualFold(e.Name, name) {
			return true
		}
	}

	return false
}

// Count returns the total number of entries, including duplicates.
func (h *Headers) Count() int {
	return len(h.entries)
}

// Iterator walks entries in insertion order.
func (h *Headers) Iterator() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range h.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Expose exposes the underlying entries slice for callers (such as the
// serializer) that need direct, ordered access without iterator overhead.
func (h *Headers) Expose() []Entry {
	return h.entries
}

// Reset clears all entries. The arena backing values is not touched here;
// callers reusing a Headers across exchanges are expected to Reset the
// arena too.
func (h *Headers) Reset() {
	h.entries = h.entries[:0]
}

// Format renders "name: value\n" per entry in insertion order, for debug
// output and test equality assertions.
func (h *Headers) Format() string {
	var b strings.Builder

	for _, e := range h.entries {
		b.WriteString(e.Name)
		b.WriteString(": ")
		b.Write(e.Value)
		b.WriteByte('\n')
	}

	return b.String()
}
