package h1

import (
	"bytes"
	"errors"

	"github.com/indigo-web/h1frame/herrors"
	"github.com/indigo-web/h1frame/ioframe"
	"github.com/indigo-web/h1frame/kv"
	"github.com/indigo-web/h1frame/token"
)

// requestLineMinLen is the shortest possible request line, "M / HTTP/1.X\r".
const requestLineMinLen = 13

// minHeaderLineLen is the shortest possible field-line, "f:\r".
const minHeaderLineLen = 3

var (
	httpVersionInfix = []byte(" HTTP/1.")
	connectMethod    = []byte("CONNECT")
	hostFieldName    = []byte("host")
)

// ReadRequestLine reads a single CRLF-terminated request line out of src
// starting at offset, recording the observed peer version on conn and
// appending :method plus :path or :authority to headers. It returns the
// offset one past the line's LF.
func ReadRequestLine(conn *Connection, headers *kv.Headers, src ioframe.Source, offset int) (int, error) {
	if conn.role != Server {
		panic("h1: ReadRequestLine is server-only")
	}

	for {
		lf, err := src.FillUntilDelimiter(offset, '\n')
		if err != nil {
			return offset, err
		}

		lineLen := lf - offset

		if lineLen == 1 && src.PeekItem(offset) == '\r' {
			// RFC 7230 §3.5: tolerate (at least) one leading blank line.
			offset = lf + 1
			continue
		}

		if lineLen < requestLineMinLen {
			return offset, herrors.ErrInvalidRequest
		}

		line := src.ReadableWithSize(offset, lineLen)
		if line[lineLen-1] != '\r' {
			return offset, herrors.ErrInvalidRequest
		}

		if !bytes.Equal(line[lineLen-10:lineLen-2], httpVersionInfix) {
			return offset, herrors.ErrInvalidRequest
		}

		sp := bytes.IndexByte(line, ' ')
		if sp <= 0 {
			return offset, herrors.ErrInvalidRequest
		}

		method := line[:sp]
		if !token.IsToken(method) {
			return offset, herrors.ErrInvalidRequest
		}

		target := line[sp+1 : lineLen-10]
		if len(target) == 0 || bytes.IndexByte(target, ' ') != -1 {
			return offset, herrors.ErrInvalidRequest
		}

		var version Version
		switch line[lineLen-2] {
		case '0':
			version = HTTP1_0
		case '1':
			version = HTTP1_1
		default:
			return offset, herrors.ErrInvalidRequest
		}

		if conn.version == HTTP1_0 && version == HTTP1_1 {
			return offset, herrors.ErrVersionMismatch
		}

		conn.setPeerVersion(version)

		if !headers.Append(":method", method, false) {
			return offset, herrors.ErrOutOfMemory
		}

		if bytes.Equal(method, connectMethod) {
			if !headers.Append(":authority", target, false) {
				return offset, herrors.ErrOutOfMemory
			}
		} else {
			if !headers.Append(":path", target, false) {
				return offset, herrors.ErrOutOfMemory
			}
		}

		return lf + 1, nil
	}
}

// ReadHeaderLine reads one field-line, including any obs-fold continuations,
// starting at offset. It reports more=false on the terminal blank line
// (bare CRLF), in which case newOffset is past that CRLF and no entry is
// appended.
func ReadHeaderLine(headers *kv.Headers, alloc kv.Allocator, src ioframe.Source, offset int) (newOffset int, more bool, err error) {
	lf, err := src.FillUntilDelimiter(offset, '\n')
	if err != nil {
		return offset, false, err
	}

	lineLen := lf - offset
	if lineLen == 0 || src.PeekItem(offset+lineLen-1) != '\r' {
		return offset, false, herrors.ErrInvalidRequest
	}

	if lineLen == 1 {
		return lf + 1, false, nil
	}

	if lineLen < minHeaderLineLen {
		return offset, false, herrors.ErrInvalidRequest
	}

	line := src.ReadableWithSize(offset, lineLen)

	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return offset, false, herrors.ErrInvalidRequest
	}

	name := line[:colon]
	for _, c := range name {
		if !token.IsTokenChar(c) {
			return offset, false, herrors.ErrInvalidRequest
		}
	}

	value := token.TrimOWS(line[colon+1 : lineLen-1])

	if !alloc.Append(value) {
		return offset, false, herrors.ErrOutOfMemory
	}

	next := lf + 1

	for {
		if ferr := src.Fill(next + 1); ferr != nil {
			if errors.Is(ferr, herrors.ErrEndOfStream) {
				return offset, false, herrors.ErrInvalidRequest
			}

			return offset, false, ferr
		}

		if !token.IsOWS(src.PeekItem(next)) {
			break
		}

		contLF, ferr := src.FillUntilDelimiter(next, '\n')
		if ferr != nil {
			if errors.Is(ferr, herrors.ErrEndOfStream) {
				return offset, false, herrors.ErrInvalidRequest
			}

			return offset, false, ferr
		}

		contLen := contLF - next
		if contLen == 0 || src.PeekItem(next+contLen-1) != '\r' {
			return offset, false, herrors.ErrInvalidRequest
		}

		cont := token.TrimOWS(src.ReadableWithSize(next, contLen-1))

		if !alloc.Append([]byte(" ")) || !alloc.Append(cont) {
			return offset, false, herrors.ErrOutOfMemory
		}

		next = contLF + 1
	}

	ownedValue := alloc.Finish()

	if !alloc.Append(name) {
		return offset, false, herrors.ErrOutOfMemory
	}

	ownedName := alloc.Finish()
	lowerASCII(ownedName)

	if bytes.Equal(ownedName, hostFieldName) {
		headers.AppendOwned(":authority", ownedValue, true)
	} else {
		headers.AppendOwned(string(ownedName), ownedValue, false)
	}

	return next, true, nil
}

// ReadHeaderBlock reads field-lines via ReadHeaderLine until the terminal
// blank line, enforcing limits.MaxHeaders. It returns the offset past the
// terminating CRLF.
func ReadHeaderBlock(headers *kv.Headers, alloc kv.Allocator, src ioframe.Source, offset int, limits Limits) (int, error) {
	limits = limits.orDefault()

	for {
		next, more, err := ReadHeaderLine(headers, alloc, src, offset)
		if err != nil {
			if errors.Is(err, herrors.ErrEndOfStream) {
				return offset, herrors.ErrInvalidRequest
			}

			return offset, err
		}

		offset = next

		if !more {
			return offset, nil
		}

		if headers.Count() > limits.MaxHeaders {
			return offset, herrors.ErrTooManyHeaders
		}
	}
}

func lowerASCII(b []byte) {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
}
