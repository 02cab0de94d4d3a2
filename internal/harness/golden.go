package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/commonjs/internal/trace"
)

// GoldenDir holds golden traces, relative to the test's package.
const GoldenDir = "testdata/golden"

// TraceSnapshot is the part of a result that golden files pin down.
type TraceSnapshot struct {
	ScenarioName string
	Session      string
	Steps        []StepResult
	Trace        []trace.Event
}

// NewSnapshot builds the snapshot of a scenario's result.
func NewSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	session := scenario.Session
	if len(result.Trace) > 0 {
		session = result.Trace[0].Session
	}
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      session,
		Steps:        result.Steps,
		Trace:        result.Trace,
	}
}

// toCanonicalMap converts the snapshot for canonical JSON. Event ids and
// per-event session tokens are left out; the ids are hashes of the other
// fields.
func (s TraceSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, sr := range s.Steps {
		m := map[string]any{"step": sr.Label}
		if sr.Error != "" {
			m["error"] = sr.Error
		} else {
			m["value"] = sr.Value
		}
		steps[i] = m
	}

	events := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := ev.CanonicalMap()
		delete(m, "session")
		events[i] = m
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"trace":         events,
	}
	if s.Session != "" {
		out["session"] = s.Session
	}
	return out
}

// Marshal returns the canonical JSON of the snapshot.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	return trace.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot with
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
