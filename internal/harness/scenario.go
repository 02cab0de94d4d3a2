package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FixtureRoot is where scenario files are placed on the in-memory
// filesystem. Load paths are relative to it.
const FixtureRoot = "/fixture"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the trace session token. Defaults to
	// testutil.DefaultSession so golden files stay stable.
	Session string `yaml:"session,omitempty"`

	// LoadPaths are relative to FixtureRoot. Empty means FixtureRoot itself.
	LoadPaths []string `yaml:"load_paths,omitempty"`

	// Aliases are merged over the default alias table.
	Aliases map[string]string `yaml:"aliases,omitempty"`

	DisableDefaultAliases bool `yaml:"disable_default_aliases,omitempty"`

	// Files maps paths relative to FixtureRoot to contents.
	Files map[string]string `yaml:"files"`

	// Modules are virtual modules: id -> exports.
	Modules map[string]any `yaml:"modules,omitempty"`

	// Steps run in order against one environment.
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one top-level require or eval. Exactly one of Require and Eval
// is set.
type Step struct {
	Require string `yaml:"require,omitempty"`
	Eval    string `yaml:"eval,omitempty"`

	// Expect is compared with the JSON form of the result. Omit it to
	// only check that the step succeeds.
	Expect any `yaml:"expect,omitempty"`

	// Error is a substring the step's error message must contain. A step
	// with Error set must fail.
	Error string `yaml:"error,omitempty"`
}

// Label is a short description used in messages and golden files.
func (s Step) Label() string {
	if s.Require != "" {
		return "require " + s.Require
	}
	return "eval " + strings.TrimSpace(s.Eval)
}

// Assertion validates the final trace or cache.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind filters events by kind (virtual, hit, load, fail).
	Kind string `yaml:"kind,omitempty"`

	// Module filters events by canonical id.
	Module string `yaml:"module,omitempty"`

	// Requested filters events by the id as written by the caller.
	Requested string `yaml:"requested,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Modules lists canonical ids: load order for trace_order, cache keys
	// for cache_contains and cache_excludes.
	Modules []string `yaml:"modules,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertCacheContains = "cache_contains"
	AssertCacheExcludes = "cache_excludes"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.LoadPaths {
		if filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
			return fmt.Errorf("load path %q must stay inside the fixture root", p)
		}
	}
	for p := range s.Files {
		if filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
			return fmt.Errorf("file %q must stay inside the fixture root", p)
		}
	}

	for i, step := range s.Steps {
		if (step.Require == "") == (step.Eval == "") {
			return fmt.Errorf("steps[%d]: exactly one of require and eval is required", i)
		}
		if step.Error != "" && step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect and error are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" && a.Module == "" && a.Requested == "" {
			return fmt.Errorf("assertions[%d]: kind, module or requested is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder, AssertCacheContains, AssertCacheExcludes:
		if len(a.Modules) == 0 {
			return fmt.Errorf("assertions[%d]: modules list is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
