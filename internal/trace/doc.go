// Package trace records require events for diagnostics and replay.
//
// Every require step (virtual hit, cache hit, load, failure) becomes an
// Event stamped with a session token and a logical sequence number. Event
// ids are content addressed: SHA-256 over a domain prefix and the
// canonical JSON of the event's identifying fields, so replays of the same
// session produce the same ids.
//
// Ordering uses seq only, never wall-clock time.
package trace
