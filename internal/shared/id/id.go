// Package id generates the identifiers used across the visualizer.
//
// Every identifier is a ULID, optionally prefixed with a short type tag so
// that log lines stay readable:
//   - pkt_*: in-flight packets
//   - req_*: HTTP requests and trace spans
//   - cli_*: WebSocket clients
//
// ULIDs sort by creation time, so packets created in the same session compare
// in send order.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PacketID identifies a packet travelling between two processes
type PacketID string

// RequestID identifies an API request or a trace span
type RequestID string

// ClientID identifies a connected WebSocket client
type ClientID string

const (
	PacketPrefix  = "pkt"
	RequestPrefix = "req"
	ClientPrefix  = "cli"
)

// Generator produces monotonic ULIDs. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests pass a deterministic reader here.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a "prefix_ULID" string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewPacketID generates a new packet ID
func NewPacketID() PacketID {
	return PacketID(Default().GenerateWithPrefix(PacketPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewClientID generates a new WebSocket client ID
func NewClientID() ClientID {
	return ClientID(Default().GenerateWithPrefix(ClientPrefix))
}

func (id PacketID) String() string  { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ClientID) String() string  { return string(id) }

// IsValid reports whether s is a bare ULID
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// Split separates a prefixed ID into its prefix and ULID parts.
func Split(prefixed string) (string, ulid.ULID, error) {
	prefix, raw, ok := strings.Cut(prefixed, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", prefixed)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", prefixed, err)
	}
	return prefix, parsed, nil
}

// Timestamp extracts the creation time from a bare or prefixed ID
func Timestamp(s string) (time.Time, error) {
	if _, parsed, err := Split(s); err == nil {
		return ulid.Time(parsed.Time()), nil
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
