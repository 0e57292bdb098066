package h1

import (
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/h1frame/herrors"
	"github.com/indigo-web/h1frame/ioframe"
)

// BodyHook is the interface hook spec.md §1/§4.3.4 leaves for a caller that
// wants a real body codec layered on top of a Stream, without pulling body
// logic into the core itself. A hook consumes raw bytes straight out of the
// same Source the header block was read from.
type BodyHook interface {
	// Next returns the next decoded chunk of body data starting at offset,
	// the offset to resume from on the following call, and whether the
	// body has been fully consumed.
	Next(src ioframe.Source, offset int) (chunk []byte, newOffset int, done bool, err error)
}

// ChunkedBodyHook adapts chunkedbody.Parser — the teacher's own chunked
// transfer-encoding decoder — to BodyHook, grounded on
// internal/transport/http1/body.go's chunkedBodyReader. chunkedbody.Parser
// is push-style (it consumes a byte slice per call); this hook bridges that
// to the pull-style, offset-addressed Source the rest of this package reads
// from, by growing its read window against Source.Fill until either the
// window is full or the peer has nothing more buffered right now.
type ChunkedBodyHook struct {
	parser     *chunkedbody.Parser
	hasTrailer bool
	window     int
}

// NewChunkedBodyHook returns a ChunkedBodyHook backed by parser. hasTrailer
// mirrors the teacher's request.Encoding.HasTrailer: whether the sender
// announced a Trailer field, which the parser needs to know to recognize
// where the chunked body ends. window bounds how many bytes are requested
// from src per Next call; zero defaults to a sane size.
func NewChunkedBodyHook(parser *chunkedbody.Parser, hasTrailer bool, window int) *ChunkedBodyHook {
	if window <= 0 {
		window = 4096
	}

	return &ChunkedBodyHook{parser: parser, hasTrailer: hasTrailer, window: window}
}

func (h *ChunkedBodyHook) Next(src ioframe.Source, offset int) (chunk []byte, newOffset int, done bool, err error) {
	if err := src.Fill(offset + 1); err != nil {
		return nil, offset, false, err
	}

	// Binary search the largest fillable offset up to the window cap: Fill
	// gives an all-or-nothing answer, with no way to ask "how much is
	// buffered right now", so this is the cheapest way to find out without
	// risking a zero-progress call into the parser.
	lo, hi := offset+1, offset+h.window
	for hi > lo {
		mid := lo + (hi-lo+1)/2

		if ferr := src.Fill(mid); ferr != nil {
			hi = mid - 1
			continue
		}

		lo = mid
	}

	data := src.ReadableWithSize(offset, lo-offset)

	piece, extra, perr := h.parser.Parse(data, h.hasTrailer)
	consumed := len(data) - len(extra)

	switch perr {
	case nil:
		return piece, offset + consumed, false, nil
	case io.EOF:
		return piece, offset + consumed, true, nil
	default:
		return nil, offset, false, herrors.NewIoError(perr)
	}
}
