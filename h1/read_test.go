package h1

import (
	"bytes"
	"errors"
	"testing"

	"github.com/indigo-web/h1frame/arena"
	"github.com/indigo-web/h1frame/herrors"
	"github.com/indigo-web/h1frame/ioframe"
	"github.com/indigo-web/h1frame/kv"
	"github.com/stretchr/testify/require"
)

func newTestStream(raw string) (*Connection, *arena.Arena, ioframe.Source) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	src := ioframe.NewReaderSource(bytes.NewReader([]byte(raw)), 16)

	return conn, a, src
}

func TestReadRequestLineAndHeaderBlock(t *testing.T) {
	t.Run("scenario 1: request line plus one header", func(t *testing.T) {
		conn, a, src := newTestStream("GET / HTTP/1.0\r\nfoo: bar\r\n\r\n")
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		offset, err = ReadHeaderBlock(headers, a, src, offset, Limits{})
		require.NoError(t, err)

		require.Equal(t, ":method: GET\n:path: /\nfoo: bar\n", headers.Format())

		v, ok := conn.PeerVersion()
		require.True(t, ok)
		require.Equal(t, HTTP1_0, v)

		src.Discard(offset)
	})

	t.Run("scenario 2: request line with no headers", func(t *testing.T) {
		conn, a, src := newTestStream("GET / HTTP/1.0\r\n")
		headers := kv.New(a)

		_, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		require.Equal(t, ":method: GET\n:path: /\n", headers.Format())
	})

	t.Run("scenario 3: tolerated leading CRLF", func(t *testing.T) {
		conn, a, src := newTestStream("\r\nGET / HTTP/1.1\r\n\r\n")
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		_, err = ReadHeaderBlock(headers, a, src, offset, Limits{})
		require.NoError(t, err)

		require.Equal(t, ":method: GET\n:path: /\n", headers.Format())
	})

	t.Run("scenario 4: CONNECT plus Host yields a second :authority", func(t *testing.T) {
		conn, a, src := newTestStream("CONNECT example.com:443 HTTP/1.1\r\nhost: example.com:443\r\n\r\n")
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		_, err = ReadHeaderBlock(headers, a, src, offset, Limits{})
		require.NoError(t, err)

		require.Equal(
			t,
			":method: CONNECT\n:authority: example.com:443\n:authority: example.com:443\n",
			headers.Format(),
		)
		require.Equal(t, 3, headers.Count())
	})

	t.Run("scenario 5: obs-fold collapses to a single space", func(t *testing.T) {
		conn, a, src := newTestStream("GET / HTTP/1.1\r\nfoo: bar\r\n qux\r\n\r\n")
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		_, err = ReadHeaderBlock(headers, a, src, offset, Limits{})
		require.NoError(t, err)

		entry, ok, err := headers.GetOnly("foo")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "bar qux", string(entry.Value))
	})

	t.Run("scenario 6: space before colon is rejected", func(t *testing.T) {
		_, a, src := newTestStream("foo : bar\r\n\r\n")
		headers := kv.New(a)

		_, _, err := ReadHeaderLine(headers, a, src, 0)
		require.ErrorIs(t, err, herrors.ErrInvalidRequest)
	})

	t.Run("scenario 7: truncated request line hits end of stream", func(t *testing.T) {
		conn, a, src := newTestStream("GET")
		headers := kv.New(a)

		_, err := ReadRequestLine(conn, headers, src, 0)
		require.ErrorIs(t, err, herrors.ErrEndOfStream)
	})

	t.Run("scenario 8: unsupported major version is rejected", func(t *testing.T) {
		conn, a, src := newTestStream("GET / HTTP/2.0\r\n\r\n")
		headers := kv.New(a)

		_, err := ReadRequestLine(conn, headers, src, 0)
		require.ErrorIs(t, err, herrors.ErrInvalidRequest)
	})

	t.Run("scenario 9: HTTP/1.0 connection sees an HTTP/1.1 peer", func(t *testing.T) {
		conn := NewConnection(Server, HTTP1_0, Limits{})
		a := arena.New(256, 1<<20)
		src := ioframe.NewReaderSource(bytes.NewReader([]byte("GET / HTTP/1.1\r\n\r\n")), 16)
		headers := kv.New(a)

		_, err := ReadRequestLine(conn, headers, src, 0)
		require.ErrorIs(t, err, herrors.ErrVersionMismatch)
	})

	t.Run("max_headers is a hard upper bound", func(t *testing.T) {
		var raw bytes.Buffer
		raw.WriteString("GET / HTTP/1.1\r\n")

		for i := 0; i < 4; i++ {
			raw.WriteString("foo: bar\r\n")
		}

		raw.WriteString("\r\n")

		conn, a, src := newTestStream(raw.String())
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		_, err = ReadHeaderBlock(headers, a, src, offset, Limits{MaxHeaders: 3})
		require.ErrorIs(t, err, herrors.ErrTooManyHeaders)
	})

	t.Run("no partial consumption on error", func(t *testing.T) {
		conn, a, src := newTestStream("foo : bar\r\n\r\n")
		headers := kv.New(a)

		_, err := ReadRequestLine(conn, headers, src, 0)
		require.Error(t, err)

		// since ReadRequestLine never discarded anything, the bytes are
		// still there to re-read from offset 0.
		require.Equal(t, byte('f'), src.PeekItem(0))
	})

	t.Run("mid-block end of stream is promoted to invalid request", func(t *testing.T) {
		conn, a, src := newTestStream("GET / HTTP/1.1\r\nfoo: bar\r\n")
		headers := kv.New(a)

		offset, err := ReadRequestLine(conn, headers, src, 0)
		require.NoError(t, err)

		_, err = ReadHeaderBlock(headers, a, src, offset, Limits{})
		require.True(t, errors.Is(err, herrors.ErrInvalidRequest))
	})
}
