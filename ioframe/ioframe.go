// Package ioframe defines the buffered-input and buffered-output contracts
// spec.md §3/§6 requires of the Connection's caller, plus a concrete,
// io.Reader/io.Writer-backed implementation of each. The contracts are
// generalized from the teacher's transport.Client (push-style Read/
// Pushback) into a pull-style, index-addressable shape: the parser asks the
// source to guarantee n bytes, or to extend until a delimiter turns up, and
// addresses everything buffered so far by offset, rolling back for free by
// simply not calling Discard.
package ioframe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/indigo-web/h1frame/herrors"
)

// Source is the buffered byte source the Connection's parsers read from.
// All offsets are relative to the first not-yet-discarded byte.
type Source interface {
	// Fill ensures at least n bytes are buffered, blocking on the
	// underlying reader as needed. It fails with herrors.ErrEndOfStream if
	// the peer closes before n bytes arrive.
	Fill(n int) error
	// FillUntilDelimiter extends the buffer, starting the scan at offset,
	// until delim is found, and returns its index.
	FillUntilDelimiter(offset int, delim byte) (int, error)
	// PeekItem returns the byte at offset i. The caller must have already
	// guaranteed i is buffered via Fill or FillUntilDelimiter.
	PeekItem(i int) byte
	// ReadableWithSize returns a zero-copy slice [offset : offset+length)
	// into the buffer.
	ReadableWithSize(offset, length int) []byte
	// Discard advances the logical read cursor by n bytes. Every offset
	// used afterwards is relative to the new cursor.
	Discard(n int)
}

// Sink is the buffered byte sink the Connection's writers serialize onto.
type Sink interface {
	Write(b []byte) error
	Print(format string, args ...any) error
}

// ReaderSource is a Source backed by an io.Reader.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource returns a ReaderSource reading from r, with an initial
// buffer capacity of initialCap bytes.
func NewReaderSource(r io.Reader, initialCap int) *ReaderSource {
	return &ReaderSource{
		r:   r,
		buf: make([]byte, 0, initialCap),
	}
}

func (s *ReaderSource) Fill(n int) error {
	for len(s.buf) < n {
		if err := s.readMore(); err != nil {
			return err
		}
	}

	return nil
}

func (s *ReaderSource) FillUntilDelimiter(offset int, delim byte) (int, error) {
	searchFrom := offset
	if searchFrom < 0 {
		searchFrom = 0
	}

	for {
		if searchFrom < len(s.buf) {
			if idx := bytes.IndexByte(s.buf[searchFrom:], delim); idx != -1 {
				return searchFrom + idx, nil
			}

			searchFrom = len(s.buf)
		}

		if err := s.readMore(); err != nil {
			return 0, err
		}
	}
}

func (s *ReaderSource) PeekItem(i int) byte {
	return s.buf[i]
}

func (s *ReaderSource) ReadableWithSize(offset, length int) []byte {
	return s.buf[offset : offset+length]
}

func (s *ReaderSource) Discard(n int) {
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
}

func (s *ReaderSource) readMore() error {
	if len(s.buf) == cap(s.buf) {
		grown := make([]byte, len(s.buf), cap(s.buf)*2+64)
		copy(grown, s.buf)
		s.buf = grown
	}

	n, err := s.r.Read(s.buf[len(s.buf):cap(s.buf)])
	if n > 0 {
		s.buf = s.buf[:len(s.buf)+n]
	}

	if err != nil {
		if n > 0 {
			// RFC-compliant io.Reader semantics: process the bytes before
			// surfacing the error on the next call.
			return nil
		}

		if err == io.EOF {
			return herrors.ErrEndOfStream
		}

		return herrors.NewIoError(err)
	}

	return nil
}

// WriterSink is a Sink backed by an io.Writer.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a WriterSink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(b []byte) error {
	_, err := s.w.Write(b)
	return herrors.NewIoError(err)
}

func (s *WriterSink) Print(format string, args ...any) error {
	_, err := fmt.Fprintf(s.w, format, args...)
	return herrors.NewIoError(err)
}
