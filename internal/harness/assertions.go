package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/trace"
)

// AssertionError is returned when an assertion fails. It carries the
// trace so failures can be read without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []trace.Event
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %-7s %s -> %s (from %s)\n",
				ev.Seq, ev.Kind, ev.Requested, ev.Canonical, ev.Caller)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertCacheContains:
			err = assertCache(result.Cache, a, true)
		case AssertCacheExcludes:
			err = assertCache(result.Cache, a, false)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// matches reports whether ev satisfies the assertion's filters. Empty
// filters match everything.
func matches(ev trace.Event, a Assertion) bool {
	if a.Kind != "" && ev.Kind != a.Kind {
		return false
	}
	if a.Module != "" && ev.Canonical != a.Module {
		return false
	}
	if a.Requested != "" && ev.Requested != a.Requested {
		return false
	}
	return true
}

func describe(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, "kind="+a.Kind)
	}
	if a.Module != "" {
		parts = append(parts, "module="+a.Module)
	}
	if a.Requested != "" {
		parts = append(parts, "requested="+a.Requested)
	}
	if len(parts) == 0 {
		return "any event"
	}
	return strings.Join(parts, " ")
}

func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, ev := range events {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if matches(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    events,
		}
	}
	return nil
}

// assertTraceOrder checks that the listed modules were first loaded in
// the given order. Other loads may come in between.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range events {
		if ev.Kind != string(loader.EventLoad) {
			continue
		}
		if _, seen := positions[ev.Canonical]; !seen {
			positions[ev.Canonical] = i + 1
		}
	}

	for _, id := range a.Modules {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("loads of %v", a.Modules),
				Actual:   fmt.Sprintf("%s never loaded", id),
				Trace:    events,
			}
		}
	}

	for i := 1; i < len(a.Modules); i++ {
		prev, curr := a.Modules[i-1], a.Modules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("loads in order %v", a.Modules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: events,
			}
		}
	}
	return nil
}

func assertCache(keys []string, a Assertion, present bool) error {
	for _, id := range a.Modules {
		i := sort.SearchStrings(keys, id)
		found := i < len(keys) && keys[i] == id
		if found == present {
			continue
		}
		typ, want := AssertCacheContains, "cached"
		if !present {
			typ, want = AssertCacheExcludes, "not cached"
		}
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%s %s", id, want),
			Actual:   fmt.Sprintf("cache keys %v", keys),
		}
	}
	return nil
}
