package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator produces "<prefix>-0001", "<prefix>-0002", ...
//
// It satisfies store.IDGenerator and makes journal contents byte-identical
// across runs. If prefix is empty, "test" is used.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
