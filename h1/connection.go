// Package h1 implements the HTTP/1.x connection and stream layer: reading
// and writing request-lines, status-lines, and header blocks over the
// ioframe buffered contracts, normalizing them into kv.Headers' pseudo-header
// representation. It is grounded on the teacher's internal/transport/http1
// parser/serializer generation, reworked from a push-style chunk parser into
// the pull-style, index-offset parser spec.md's buffered-input contract
// requires.
package h1

// Role is fixed at Connection construction and determines which side of the
// request/response exchange this Connection drives.
type Role uint8

const (
	Server Role = iota + 1
	Client
)

func (r Role) String() string {
	switch r {
	case Server:
		return "server"
	case Client:
		return "client"
	default:
		return "unknown"
	}
}

// Version is the declared HTTP/1.x protocol version.
type Version uint8

const (
	HTTP1_0 Version = iota + 1
	HTTP1_1
)

func (v Version) String() string {
	switch v {
	case HTTP1_0:
		return "HTTP/1.0"
	case HTTP1_1:
		return "HTTP/1.1"
	default:
		return "unknown"
	}
}

// DefaultMaxHeaders mirrors spec.md's max_headers default.
const DefaultMaxHeaders = 100

// Limits bounds the resource consumption of a single exchange.
type Limits struct {
	// MaxHeaders is the hard cap on Headers.Count() a single header block may
	// reach. Zero means DefaultMaxHeaders.
	MaxHeaders int
}

func (l Limits) orDefault() Limits {
	if l.MaxHeaders == 0 {
		l.MaxHeaders = DefaultMaxHeaders
	}

	return l
}

// Connection holds the state that outlives any single exchange: which role
// this side plays, the version it declares, the peer's version as observed
// on the wire, and the policy limits applied to every Stream it creates.
// Per spec.md's concurrency model, a Connection is driven by exactly one
// worker at a time and is never shared across goroutines.
type Connection struct {
	role        Role
	version     Version
	limits      Limits
	peerVersion Version
	hasPeer     bool
}

// NewConnection returns a Connection for role, declaring version, with
// limits backfilled from their defaults.
func NewConnection(role Role, version Version, limits Limits) *Connection {
	return &Connection{
		role:    role,
		version: version,
		limits:  limits.orDefault(),
	}
}

// Role reports which side of the exchange this Connection drives.
func (c *Connection) Role() Role {
	return c.role
}

// Version reports this side's own declared protocol version.
func (c *Connection) Version() Version {
	return c.version
}

// PeerVersion returns the version most recently observed on an inbound
// request-line, and whether one has been observed yet. A
// keep-alive driver reusing one Connection across many Streams can use this
// to decide, e.g., whether to keep the transport open between exchanges.
func (c *Connection) PeerVersion() (Version, bool) {
	return c.peerVersion, c.hasPeer
}

// Reset clears the memoized peer version, for a driver that wants a fresh
// Connection's semantics without re-allocating one (e.g. after a protocol
// upgrade).
func (c *Connection) Reset() {
	c.hasPeer = false
}

func (c *Connection) setPeerVersion(v Version) {
	c.peerVersion = v
	c.hasPeer = true
}
