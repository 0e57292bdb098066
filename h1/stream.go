package h1

import (
	"strconv"

	"github.com/indigo-web/h1frame/ioframe"
	"github.com/indigo-web/h1frame/kv"
	"github.com/indigo-web/h1frame/status"
)

// streamState is the explicit state machine spec.md §4.3.3 asks for, beyond
// the single `idle` state the teacher's own Stream names.
type streamState uint8

const (
	idle streamState = iota
	readingHeaders
	afterHeaders
	writingHeaders
	afterWriting
	readingTrailers
	closed
)

// DefaultScheme is the scheme a client-role Stream.WriteHeaderBlock resolves
// to when the caller's Headers carry no :scheme pseudo-header. It is reported
// by Stream.Scheme and is not added to the Headers or written to the wire.
const DefaultScheme = "http"

// Stream is one logical request/response exchange bound to a Connection. It
// is not safe for concurrent use and is not reused across exchanges: per
// spec.md's resource model, a new Stream is created for each exchange.
// Stream never resets its allocator; the caller releases the per-exchange
// storage (e.g. with arena.Arena.Reset) once the exchange ends.
type Stream struct {
	conn           *Connection
	alloc          kv.Allocator
	state          streamState
	scheme         string
	resolvedScheme string
}

// NewStream returns a Stream bound to conn, using alloc for per-exchange
// header storage.
func NewStream(conn *Connection, alloc kv.Allocator) *Stream {
	return &Stream{conn: conn, alloc: alloc, scheme: DefaultScheme}
}

// SetScheme overrides the scheme a client Stream resolves to when the
// outbound Headers carry no :scheme (e.g. for a client layer that knows
// it's dialing through TLS and wants "https" instead of the default). The
// resolved value is read back with Scheme.
func (s *Stream) SetScheme(scheme string) {
	s.scheme = scheme
}

// State reports the stream's current position in its lifecycle.
func (s *Stream) State() streamState {
	return s.state
}

// Scheme reports the scheme a client-role WriteHeaderBlock resolved the
// request to: the caller's own :scheme header if present, otherwise the
// Stream's default. :scheme is a pseudo-header and never written to the
// wire or back into the caller's Headers, so this is the only way to read
// it back after the call.
func (s *Stream) Scheme() string {
	return s.resolvedScheme
}

// ReadRequestHeaders reads a complete request-line plus header block from
// src, starting at its first unconsumed byte, and returns the resulting
// Headers. It is server-only. On success it discards the consumed bytes
// from src; on failure it leaves src untouched and transitions the Stream
// to closed, per spec.md's "no partial consumption on error" invariant.
func (s *Stream) ReadRequestHeaders(src ioframe.Source) (*kv.Headers, error) {
	if s.conn.role != Server {
		panic("h1: ReadRequestHeaders is server-only")
	}

	if s.state != idle {
		panic("h1: ReadRequestHeaders called out of order")
	}

	s.state = readingHeaders

	headers := kv.NewPrealloc(s.alloc, s.conn.limits.MaxHeaders)

	offset, err := ReadRequestLine(s.conn, headers, src, 0)
	if err != nil {
		s.state = closed
		return nil, err
	}

	offset, err = ReadHeaderBlock(headers, s.alloc, src, offset, s.conn.limits)
	if err != nil {
		s.state = closed
		return nil, err
	}

	src.Discard(offset)
	s.state = afterHeaders

	return headers, nil
}

// ReadTrailers reads one more header block, treated as trailers rather than
// a fresh request, starting at the caller-supplied offset into src (e.g.
// immediately after a chunked body's final chunk). It returns the offset
// past the block's terminating CRLF.
func (s *Stream) ReadTrailers(src ioframe.Source, offset int) (*kv.Headers, int, error) {
	if s.state != afterHeaders && s.state != readingTrailers {
		panic("h1: ReadTrailers called out of order")
	}

	s.state = readingTrailers

	trailers := kv.New(s.alloc)

	newOffset, err := ReadHeaderBlock(trailers, s.alloc, src, offset, s.conn.limits)
	if err != nil {
		s.state = closed
		return nil, offset, err
	}

	src.Discard(newOffset)
	s.state = afterHeaders

	return trailers, newOffset, nil
}

// WriteHeaderBlock serializes headers onto sink, dispatched on the
// Connection's role per spec.md §4.3.2.
func (s *Stream) WriteHeaderBlock(headers *kv.Headers, sink ioframe.Sink) error {
	if s.state != idle && s.state != afterHeaders {
		panic("h1: WriteHeaderBlock called out of order")
	}

	s.state = writingHeaders

	var err error
	switch s.conn.role {
	case Client:
		err = s.writeClientHeaderBlock(headers, sink)
	case Server:
		err = s.writeServerHeaderBlock(headers, sink)
	default:
		panic("h1: connection has no role")
	}

	if err != nil {
		s.state = closed
		return err
	}

	s.state = afterWriting

	return nil
}

// WriteTrailers serializes trailers onto sink as a plain header block: no
// pseudo-header suppression applies, since trailers never carry them.
func (s *Stream) WriteTrailers(trailers *kv.Headers, sink ioframe.Sink) error {
	for _, e := range trailers.Expose() {
		if err := WriteHeaderLine(e.Name, string(e.Value), sink); err != nil {
			return err
		}
	}

	return WriteHeadersDone(sink)
}

func (s *Stream) writeClientHeaderBlock(headers *kv.Headers, sink ioframe.Sink) error {
	methodEntry, ok, err := headers.GetOnly(":method")
	if err != nil {
		return err
	}

	if !ok {
		panic("h1: :method is required to write a request")
	}

	method := string(methodEntry.Value)

	authorityEntry, hasAuthority, err := headers.GetOnly(":authority")
	if err != nil {
		return err
	}

	schemeEntry, hasScheme, err := headers.GetOnly(":scheme")
	if err != nil {
		return err
	}

	if hasScheme {
		s.resolvedScheme = string(schemeEntry.Value)
	} else {
		s.resolvedScheme = s.scheme
	}

	var target string

	if method == "CONNECT" {
		if !hasAuthority {
			panic("h1: CONNECT requires :authority")
		}

		if headers.Contains(":path") {
			panic("h1: CONNECT must not carry :path")
		}

		target = string(authorityEntry.Value)
	} else {
		pathEntry, hasPath, err := headers.GetOnly(":path")
		if err != nil {
			return err
		}

		if !hasPath {
			panic("h1: :path is required to write a non-CONNECT request")
		}

		if !hasAuthority && s.conn.version == HTTP1_1 {
			panic("h1: an HTTP/1.1 request requires :authority (Host)")
		}

		target = string(pathEntry.Value)
	}

	if err := WriteRequestLine(s.conn, method, target, sink); err != nil {
		return err
	}

	for _, e := range headers.Expose() {
		if isPseudoHeader(e.Name) {
			continue
		}

		if err := WriteHeaderLine(e.Name, string(e.Value), sink); err != nil {
			return err
		}
	}

	if hasAuthority {
		if err := WriteHeaderLine("host", string(authorityEntry.Value), sink); err != nil {
			return err
		}
	}

	return WriteHeadersDone(sink)
}

func (s *Stream) writeServerHeaderBlock(headers *kv.Headers, sink ioframe.Sink) error {
	statusEntry, ok, err := headers.GetOnly(":status")
	if err != nil {
		return err
	}

	if !ok {
		panic("h1: :status is required to write a response")
	}

	code := statusEntry.Value
	if len(code) != 3 {
		panic("h1: :status must be exactly 3 ASCII digits")
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			panic("h1: :status must be exactly 3 ASCII digits")
		}
	}

	codeNum, _ := strconv.Atoi(string(code))

	if codeNum >= 100 && codeNum < 200 {
		if peer, ok := s.conn.PeerVersion(); ok && peer == HTTP1_0 {
			panic("h1: 1xx responses are forbidden to an HTTP/1.0 peer")
		}
	}

	reason := status.Text(status.Code(codeNum))

	if err := WriteStatusLine(s.conn, string(code), reason, sink); err != nil {
		return err
	}

	for _, e := range headers.Expose() {
		if isPseudoHeader(e.Name) {
			continue
		}

		if err := WriteHeaderLine(e.Name, string(e.Value), sink); err != nil {
			return err
		}
	}

	return WriteHeadersDone(sink)
}

func isPseudoHeader(name string) bool {
	return len(name) > 0 && name[0] == ':'
}
