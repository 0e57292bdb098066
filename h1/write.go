package h1

import "github.com/indigo-web/h1frame/ioframe"

func versionString(v Version) string {
	if v == HTTP1_1 {
		return "1.1"
	}

	return "1.0"
}

// WriteRequestLine writes "METHOD SP TARGET SP HTTP/<ver> CRLF". Client-only.
// Panics if method or target contains SP, CR, or LF: producing such bytes on
// the wire is a caller bug with request-smuggling consequences, not a
// recoverable protocol error.
func WriteRequestLine(conn *Connection, method, target string, sink ioframe.Sink) error {
	if conn.role != Client {
		panic("h1: WriteRequestLine is client-only")
	}

	if containsAny(method, ' ', '\r', '\n') {
		panic("h1: method contains SP, CR or LF")
	}

	if containsAny(target, ' ', '\r', '\n') {
		panic("h1: target contains SP, CR or LF")
	}

	return sink.Print("%s %s HTTP/%s\r\n", method, target, versionString(conn.version))
}

// WriteStatusLine writes "HTTP/<ver> SP SSS SP reason CRLF". Server-only.
// Panics unless code is exactly 3 ASCII digits, or if reason contains CR/LF.
func WriteStatusLine(conn *Connection, code, reason string, sink ioframe.Sink) error {
	if conn.role != Server {
		panic("h1: WriteStatusLine is server-only")
	}

	if len(code) != 3 {
		panic("h1: status code must be exactly 3 bytes")
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			panic("h1: status code byte is not an ASCII digit")
		}
	}

	if containsAny(reason, '\r', '\n') {
		panic("h1: reason phrase contains CR or LF")
	}

	return sink.Print("HTTP/%s %s %s\r\n", versionString(conn.version), code, reason)
}

// WriteHeaderLine writes "name: value CRLF". Panics if name contains ':',
// CR, or LF, or if value contains an LF not immediately followed by SP or
// HTAB (the only obs-fold shape the writer will pass through unexamined; the
// wire format never originates a fold itself).
func WriteHeaderLine(name, value string, sink ioframe.Sink) error {
	if containsAny(name, ':', '\r', '\n') {
		panic("h1: header name contains ':', CR or LF")
	}

	for i := 0; i < len(value); i++ {
		if value[i] != '\n' {
			continue
		}

		if i+1 >= len(value) || (value[i+1] != ' ' && value[i+1] != '\t') {
			panic("h1: header value contains a bare LF")
		}
	}

	return sink.Print("%s: %s\r\n", name, value)
}

// WriteHeadersDone writes the bare CRLF terminating a header block.
func WriteHeadersDone(sink ioframe.Sink) error {
	return sink.Write(crlf)
}

var crlf = []byte("\r\n")

func containsAny(s string, chars ...byte) bool {
	for i := 0; i < len(s); i++ {
		for _, c := range chars {
			if s[i] == c {
				return true
			}
		}
	}

	return false
}
