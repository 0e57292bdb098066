package h1

import (
	"bytes"
	"testing"

	"github.com/indigo-web/h1frame/arena"
	"github.com/indigo-web/h1frame/ioframe"
	"github.com/indigo-web/h1frame/kv"
	"github.com/stretchr/testify/require"
)

func TestStreamReadRequestHeaders(t *testing.T) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	src := ioframe.NewReaderSource(bytes.NewReader([]byte("GET /widgets HTTP/1.1\r\nhost: example.com\r\nx-trace: abc\r\n\r\nleftover")), 16)
	stream := NewStream(conn, a)

	headers, err := stream.ReadRequestHeaders(src)
	require.NoError(t, err)
	require.Equal(t, afterHeaders, stream.State())

	entry, ok, err := headers.GetOnly(":authority")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "example.com", string(entry.Value))

	// discarded exactly the header block, nothing more.
	require.NoError(t, src.Fill(8))
	require.Equal(t, "leftover", string(src.ReadableWithSize(0, 8)))
}

func TestStreamReadRequestHeadersLeavesInputOnFailure(t *testing.T) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	src := ioframe.NewReaderSource(bytes.NewReader([]byte("GET / HTTP/9.9\r\n\r\n")), 16)
	stream := NewStream(conn, a)

	_, err := stream.ReadRequestHeaders(src)
	require.Error(t, err)
	require.Equal(t, closed, stream.State())

	// nothing was discarded: the request line is still at offset 0.
	require.Equal(t, byte('G'), src.PeekItem(0))
}

func TestStreamWriteHeaderBlockServer(t *testing.T) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	stream := NewStream(conn, a)

	headers := kv.New(a)
	headers.Append(":status", []byte("404"), true)
	headers.Append("content-type", []byte("text/plain"), false)

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)

	require.NoError(t, stream.WriteHeaderBlock(headers, sink))
	require.Equal(t, "HTTP/1.1 404 Not Found\r\ncontent-type: text/plain\r\n\r\n", buf.String())
	require.Equal(t, afterWriting, stream.State())
}

func TestStreamWriteHeaderBlockServerForbids1xxOnHTTP10Peer(t *testing.T) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	// simulate having read an HTTP/1.0 request first.
	src := ioframe.NewReaderSource(bytes.NewReader([]byte("GET / HTTP/1.0\r\n\r\n")), 16)
	a := arena.New(256, 1<<20)
	headers := kv.New(a)
	_, err := ReadRequestLine(conn, headers, src, 0)
	require.NoError(t, err)

	stream := NewStream(conn, a)
	respHeaders := kv.New(a)
	respHeaders.Append(":status", []byte("100"), true)

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)

	require.Panics(t, func() {
		_ = stream.WriteHeaderBlock(respHeaders, sink)
	})
}

func TestStreamWriteHeaderBlockClient(t *testing.T) {
	conn := NewConnection(Client, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	stream := NewStream(conn, a)

	headers := kv.New(a)
	headers.Append(":method", []byte("GET"), false)
	headers.Append(":path", []byte("/widgets"), false)
	headers.Append(":authority", []byte("example.com"), false)
	headers.Append("accept", []byte("*/*"), false)

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)

	require.NoError(t, stream.WriteHeaderBlock(headers, sink))
	require.Equal(
		t,
		"GET /widgets HTTP/1.1\r\naccept: */*\r\nhost: example.com\r\n\r\n",
		buf.String(),
	)
}

func TestStreamWriteHeaderBlockClientRequiresHostOn11(t *testing.T) {
	conn := NewConnection(Client, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	stream := NewStream(conn, a)

	headers := kv.New(a)
	headers.Append(":method", []byte("GET"), false)
	headers.Append(":path", []byte("/"), false)

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)

	require.Panics(t, func() {
		_ = stream.WriteHeaderBlock(headers, sink)
	})
}

func TestStreamTrailers(t *testing.T) {
	conn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	src := ioframe.NewReaderSource(bytes.NewReader([]byte("x-checksum: deadbeef\r\n\r\n")), 16)
	stream := NewStream(conn, a)
	stream.state = afterHeaders

	trailers, _, err := stream.ReadTrailers(src, 0)
	require.NoError(t, err)
	require.Equal(t, "x-checksum: deadbeef\n", trailers.Format())

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)
	require.NoError(t, stream.WriteTrailers(trailers, sink))
	require.Equal(t, "x-checksum: deadbeef\r\n\r\n", buf.String())
}

func TestRoundTripRequestLineAndHeaders(t *testing.T) {
	serverConn := NewConnection(Server, HTTP1_1, Limits{})
	a := arena.New(256, 1<<20)
	src := ioframe.NewReaderSource(bytes.NewReader([]byte("GET /widgets HTTP/1.1\r\naccept: */*\r\nhost: example.com\r\n\r\n")), 16)
	serverStream := NewStream(serverConn, a)

	parsed, err := serverStream.ReadRequestHeaders(src)
	require.NoError(t, err)

	clientConn := NewConnection(Client, HTTP1_1, Limits{})
	clientStream := NewStream(clientConn, a)

	var buf bytes.Buffer
	sink := ioframe.NewWriterSink(&buf)
	require.NoError(t, clientStream.WriteHeaderBlock(parsed, sink))

	reparseConn := NewConnection(Server, HTTP1_1, Limits{})
	reparseSrc := ioframe.NewReaderSource(bytes.NewReader(buf.Bytes()), 16)
	reparseStream := NewStream(reparseConn, a)

	reparsed, err := reparseStream.ReadRequestHeaders(reparseSrc)
	require.NoError(t, err)
	require.Equal(t, parsed.Format(), reparsed.Format())
}
