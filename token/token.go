// Package token provides the byte-level validation primitives spec.md's
// request-line and header-line grammar needs: HTTP token characters and
// optional whitespace (OWS). Token-character validation is delegated to
// golang.org/x/net/http/httpguts, the same package net/http itself uses for
// this — there is no reason to hand-roll a lookup table the ecosystem
// already maintains correctly against RFC 9110 §5.6.2.
package token

import "golang.org/x/net/http/httpguts"

// IsTokenChar reports whether c is a valid RFC 9110 §5.6.2 token character:
// digits, letters, or one of "!#$%&'*+-.^_`|~".
func IsTokenChar(c byte) bool {
	return httpguts.IsTokenRune(rune(c))
}

// IsToken reports whether every byte of s is a token character and s is
// non-empty. A zero-length token (e.g. an empty method) is never valid.
func IsToken(s []byte) bool {
	if len(s) == 0 {
		return false
	}

	for _, c := range s {
		if !IsTokenChar(c) {
			return false
		}
	}

	return true
}

// IsOWS reports whether c is optional whitespace: SP or HTAB.
func IsOWS(c byte) bool {
	return c == ' ' || c == '\t'
}

// TrimOWS strips leading and trailing SP/HTAB from b, returning a subslice
// (no copy).
func TrimOWS(b []byte) []byte {
	start := 0
	for start < len(b) && IsOWS(b[start]) {
		start++
	}

	end := len(b)
	for end > start && IsOWS(b[end-1]) {
		end--
	}

	return b[start:end]
}
