package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/commonjs/internal/loader"
)

// DomainEvent separates event hashes from any other hashed content.
const DomainEvent = "cjs/event/v1"

// Event is one recorded require step.
type Event struct {
	ID        string `json:"id"`
	Session   string `json:"session"`
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	Caller    string `json:"caller"`
	Requested string `json:"requested"`
	Aliased   string `json:"aliased,omitempty"`
	Canonical string `json:"canonical,omitempty"`
	Path      string `json:"path,omitempty"`
	Depth     int    `json:"depth"`
	Error     string `json:"error,omitempty"`
}

// FromRequire converts a loader event.
func FromRequire(session string, seq int64, ev loader.RequireEvent) Event {
	out := Event{
		Session:   session,
		Seq:       seq,
		Kind:      string(ev.Kind),
		Caller:    ev.Caller,
		Requested: ev.Requested,
		Aliased:   ev.Aliased,
		Canonical: ev.Canonical,
		Path:      ev.Path,
		Depth:     ev.Depth,
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

// CanonicalMap returns the event as a map for canonical encoding. Empty
// optional fields are omitted. The id is excluded.
func (e Event) CanonicalMap() map[string]any {
	m := map[string]any{
		"session":   e.Session,
		"seq":       e.Seq,
		"kind":      e.Kind,
		"caller":    e.Caller,
		"requested": e.Requested,
		"depth":     e.Depth,
	}
	if e.Aliased != "" {
		m["aliased"] = e.Aliased
	}
	if e.Canonical != "" {
		m["canonical"] = e.Canonical
	}
	if e.Path != "" {
		m["path"] = e.Path
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// EventID computes the content-addressed id of e.
func EventID(e Event) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"session":   e.Session,
		"seq":       e.Seq,
		"kind":      e.Kind,
		"caller":    e.Caller,
		"requested": e.Requested,
		"canonical": e.Canonical,
	})
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// hashWithDomain returns hex(SHA-256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
