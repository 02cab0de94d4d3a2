package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/roach88/commonjs/internal/env"
	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/testutil"
	"github.com/roach88/commonjs/internal/trace"
)

// Harness runs one scenario against a fresh environment.
type Harness struct {
	env    *env.Environment
	store  *store.Store
	tracer *trace.Tracer
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets its own in-memory filesystem, environment and in-memory
// database. Step mismatches and failed assertions are reported in the
// result; the returned error is reserved for scenarios that cannot be set
// up at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with a caller-supplied logger for the environment.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	session := testutil.NewFixedSessionGenerator(scenario.Session).Generate()
	if err := st.WriteSession(ctx, store.Session{
		Token:     session,
		Entry:     scenario.Name,
		LoadPaths: scenario.loadPaths(),
		Aliases:   scenario.Aliases,
	}); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	tracer := trace.NewTracer(session,
		trace.WithClock(testutil.NewDeterministicClock()),
		trace.WithSink(st.Sink(ctx)),
		trace.WithLogger(logger),
	)

	fs := afero.NewMemMapFs()
	if err := testutil.WriteTree(fs, FixtureRoot, scenario.Files); err != nil {
		return nil, fmt.Errorf("failed to write fixture: %w", err)
	}

	e, err := env.New(env.Options{
		LoadPaths:             scenario.loadPaths(),
		Aliases:               loader.AliasTable(scenario.Aliases),
		DisableDefaultAliases: scenario.DisableDefaultAliases,
		FS:                    fs,
		Logger:                logger,
		Tracer:                tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}

	for _, id := range sortedKeys(scenario.Modules) {
		if _, err := e.DefineModule(id, scenario.Modules[id]); err != nil {
			return nil, fmt.Errorf("failed to define module %s: %w", id, err)
		}
	}

	h := &Harness{env: e, store: st, tracer: tracer, logger: logger}
	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	if err := tracer.Err(); err != nil {
		return nil, fmt.Errorf("failed to record trace: %w", err)
	}
	events, err := st.ReadEvents(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = events
	result.Cache = e.Cache().Keys()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and checks it against its expectation.
func (h *Harness) executeStep(i int, step Step, result *Result) {
	sr := StepResult{Label: step.Label()}

	var (
		value any
		err   error
	)
	if step.Require != "" {
		value, err = h.env.RequireValue(step.Require)
	} else {
		value, err = h.env.EvalValue(fmt.Sprintf("step-%d", i), step.Eval)
	}

	if err != nil {
		sr.Error = err.Error()
		result.Steps = append(result.Steps, sr)
		switch {
		case step.Error == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, sr.Label, err))
		case !strings.Contains(sr.Error, step.Error):
			result.AddError(fmt.Sprintf("steps[%d] %s: error %q does not contain %q", i, sr.Label, sr.Error, step.Error))
		}
		return
	}

	sr.Value, err = h.env.JSON(value, "")
	if err != nil {
		sr.Value = ""
		sr.Error = err.Error()
		result.Steps = append(result.Steps, sr)
		result.AddError(fmt.Sprintf("steps[%d] %s: render result: %v", i, sr.Label, err))
		return
	}
	result.Steps = append(result.Steps, sr)

	if step.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %s", i, sr.Label, step.Error, sr.Value))
		return
	}
	if step.Expect != nil {
		if msg, ok := matchJSON(step.Expect, sr.Value); !ok {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, sr.Label, msg))
		}
	}

	h.logger.Debug("scenario step completed", "step", i, "label", sr.Label)
}

// matchJSON compares an expected YAML value with a JSON rendering. Both
// sides go through encoding/json so numbers compare as float64.
func matchJSON(expected any, actual string) (string, bool) {
	raw, err := json.Marshal(normalizeYAML(expected))
	if err != nil {
		return fmt.Sprintf("cannot encode expectation: %v", err), false
	}
	var want, got any
	if err := json.Unmarshal(raw, &want); err != nil {
		return fmt.Sprintf("cannot decode expectation: %v", err), false
	}
	if actual == "undefined" {
		return fmt.Sprintf("expected %s, got undefined", raw), false
	}
	if err := json.Unmarshal([]byte(actual), &got); err != nil {
		return fmt.Sprintf("cannot decode result %s: %v", actual, err), false
	}
	if !reflect.DeepEqual(want, got) {
		return fmt.Sprintf("expected %s, got %s", raw, actual), false
	}
	return "", true
}

// normalizeYAML turns map[any]any nodes, which encoding/json rejects,
// into map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	default:
		return v
	}
}

// loadPaths returns the absolute load paths on the fixture filesystem.
func (s *Scenario) loadPaths() []string {
	if len(s.LoadPaths) == 0 {
		return []string{FixtureRoot}
	}
	paths := make([]string, len(s.LoadPaths))
	for i, p := range s.LoadPaths {
		paths[i] = filepath.Join(FixtureRoot, filepath.FromSlash(p))
	}
	return paths
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
