package testutil

// DefaultSession is used when a test does not name its trace session.
const DefaultSession = "test-session-default"

// FixedSessionGenerator hands out the same session token on every call so
// that traces from repeated runs are byte-identical.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator returns a generator for token, or DefaultSession
// when token is empty.
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSessionGenerator{token: token}
}

// Generate implements trace.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
