package trace

import (
	"sync"

	"github.com/google/uuid"
)

// SessionGenerator creates session tokens.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator creates time-sortable session tokens, so sessions list
// in creation order.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics if the random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order and panics once
// they run out.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

// NewFixedGenerator returns a generator over tokens.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next >= len(g.tokens) {
		panic("trace: FixedGenerator exhausted")
	}
	tok := g.tokens[g.next]
	g.next++
	return tok
}
