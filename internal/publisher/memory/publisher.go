// Package memory contains an in-memory publisher for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	payloads []any
	err      error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// NewFailing returns a Publisher that rejects every publish with err.
func NewFailing(err error) *Publisher {
	if err == nil {
		err = errors.New("publish rejected")
	}
	return &Publisher{err: err}
}

// Publish records the payload and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("memory-%d", len(p.payloads)), nil
}

// Payloads returns the recorded publishes in order.
func (p *Publisher) Payloads() []any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}
