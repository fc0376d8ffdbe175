// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultPrefix is prepended to store record IDs.
const DefaultPrefix = "store_"

// Generator creates prefixed UUID v7 strings. UUIDv7 keeps IDs unique within
// a run and roughly ordered by collection time.
type Generator struct {
	prefix string
}

// New creates a Generator using DefaultPrefix.
func New() *Generator {
	return &Generator{prefix: DefaultPrefix}
}

// NewID returns prefix + UUIDv7.
func (g Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return g.prefix + id.String(), nil
}
