package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator yields predictable identifiers such as booking tokens and
// case ids so assertions can name them. It is safe for concurrent use.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns prefix-N for the next N, starting at 1.
func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.issued.Add(1), 10)
}

// NextFunc returns Next for injection into constructors.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() uint64 {
	return g.issued.Load()
}
