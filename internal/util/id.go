// Package util provides utility functions for Galley.
package util

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator hands out UUIDv7 identifiers. Generated IDs sort by creation
// time, which keeps SQLite index inserts append-only for plan output tables.
type IDGenerator struct {
	mu sync.Mutex
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID generates a new UUIDv7 identifier from this generator.
func (g *IDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		// Entropy failure; fall back to a random v4 rather than failing a plan run.
		id = uuid.New()
	}
	return id.String()
}

var generator = NewIDGenerator()

// NewID generates a new UUIDv7 identifier.
func NewID() string {
	return generator.NewID()
}

// ParseID validates and normalizes a UUID string.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return id.String(), nil
}

// IsValidID checks if a string is a valid UUID format.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// DeterministicID derives a stable name-based UUID (v5) from its parts.
// Used for records whose identity is their natural key, such as a task for
// (date, site, meal period, recipe), so re-planning a day overwrites rows
// instead of duplicating them.
func DeterministicID(parts ...string) string {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "\x1f"
		}
		name += p
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
