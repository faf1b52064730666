// Package id provides centralized ID generation for the agent.
//
// Transaction identifiers are prefixed ULIDs (txn_*): lexicographically
// sortable and readable in logs. Wire-level trace and span identifiers
// follow the traceparent hex format (32 and 16 lowercase hex characters).
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// TransactionID identifies a single tracing transaction
type TransactionID string

// TransactionPrefix marks transaction IDs in logs
const TransactionPrefix = "txn"

// String returns the ID as a plain string
func (id TransactionID) String() string { return string(id) }

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewTransactionID generates a new transaction ID
func NewTransactionID() TransactionID {
	return TransactionID(Default().GenerateWithPrefix(TransactionPrefix))
}

// NewTraceID generates a fresh 128-bit trace ID as 32 lowercase hex characters
func NewTraceID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NewSpanID generates a fresh 64-bit span ID as 16 lowercase hex characters
func NewSpanID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to ULID entropy
		u := Default().Generate()
		copy(b[:], u[8:])
	}
	return hex.EncodeToString(b[:])
}

// IsValid checks if an ID string is a valid ULID (ignoring any prefix)
func IsValid(id string) bool {
	if i := len(id) - 26; i > 0 && id[i-1] == '_' {
		id = id[i:]
	}
	_, err := ulid.Parse(id)
	return err == nil
}
