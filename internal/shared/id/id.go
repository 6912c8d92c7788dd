// Package id provides centralized ID generation for turbosocket.
//
// IDs are ULIDs with a short type prefix so log lines from different stages
// can be correlated at a glance:
//   - cmd_*:  one inbound command and the reply produced for it
//   - thr_*:  one managed worker thread
//   - conn_*: one client connection (TCP or WebSocket)
//
// The default generator uses monotonic entropy, so IDs produced by one process
// sort in creation order even within the same millisecond.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CommandID identifies one inbound command and its reply
type CommandID string

// ThreadID identifies a managed worker thread
type ThreadID string

// ConnectionID identifies a client connection
type ConnectionID string

const (
	CommandPrefix    = "cmd"
	ThreadPrefix     = "thr"
	ConnectionPrefix = "conn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // monotonic readers are not safe for concurrent use
}

var (
	defaultGenerator *Generator
	once             sync.Once

	instanceID = uuid.New()
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic entropy
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewCommandID generates a new command ID
func NewCommandID() CommandID {
	return CommandID(Default().GenerateWithPrefix(CommandPrefix))
}

// NewThreadID generates a new thread ID
func NewThreadID() ThreadID {
	return ThreadID(Default().GenerateWithPrefix(ThreadPrefix))
}

// NewConnectionID generates a new connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

func (id CommandID) String() string    { return string(id) }
func (id ThreadID) String() string     { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// Instance returns the random identifier of this process, stable for its lifetime
func Instance() string {
	return instanceID.String()
}

// Parse returns the ULID inside a bare or prefixed ID such as "conn_01J..."
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.ParseStrict(id)
}

// ParseConnectionID checks that s is a connection ID
func ParseConnectionID(s string) (ConnectionID, error) {
	prefix, _, ok := strings.Cut(s, "_")
	if !ok || prefix != ConnectionPrefix {
		return "", fmt.Errorf("invalid connection ID %q: want prefix %s_", s, ConnectionPrefix)
	}
	if _, err := Parse(s); err != nil {
		return "", fmt.Errorf("invalid connection ID %q: %w", s, err)
	}
	return ConnectionID(s), nil
}

// Timestamp returns the creation time encoded in a bare or prefixed ID,
// at millisecond precision
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
