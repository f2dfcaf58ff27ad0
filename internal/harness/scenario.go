package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the CUE manifest path, relative to the scenario file.
	Manifest string `yaml:"manifest"`

	// Mode is strict or permissive. Empty means strict.
	Mode string `yaml:"mode,omitempty"`

	// Source is the fixture body the calls are extracted from.
	Source string `yaml:"source"`

	// Assertions validate the replay and its metrics.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a scenario result.
type Assertion struct {
	Type string `yaml:"type"`

	// Expect is the expected flag (ok, halted).
	Expect *bool `yaml:"expect,omitempty"`

	// Kind, Call and Count select violations (violation).
	Kind  string `yaml:"kind,omitempty"`
	Call  *int   `yaml:"call,omitempty"`
	Count *int   `yaml:"count,omitempty"`

	// Var and State check a final variable state (final_state).
	Var   string `yaml:"var,omitempty"`
	State string `yaml:"state,omitempty"`

	Transition string `yaml:"transition,omitempty"`
	Branch     string `yaml:"branch,omitempty"`

	// Metric and Value check a scored metric (metric).
	Metric string   `yaml:"metric,omitempty"`
	Value  *float64 `yaml:"value,omitempty"`

	// Function is the expected unknown symbol (unknown_symbol).
	Function string `yaml:"function,omitempty"`
}

// Assertion type constants.
const (
	AssertOK            = "ok"
	AssertHalted        = "halted"
	AssertViolation     = "violation"
	AssertNoViolations  = "no_violations"
	AssertFinalState    = "final_state"
	AssertTransition    = "transition"
	AssertBranch        = "branch"
	AssertMetric        = "metric"
	AssertUnknownSymbol = "unknown_symbol"
)

var metricNames = map[string]bool{
	"score": true, "visited": true, "density": true,
	"branches": true, "library_calls": true, "critical_calls": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Manifest != "" && !filepath.IsAbs(scenario.Manifest) {
		scenario.Manifest = filepath.Join(filepath.Dir(path), scenario.Manifest)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if _, err := os.Stat(s.Manifest); os.IsNotExist(err) {
		return fmt.Errorf("manifest file not found: %s", s.Manifest)
	}
	if s.Mode != "" {
		if _, err := engine.ParseMode(s.Mode); err != nil {
			return err
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
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
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOK, AssertHalted:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertViolation:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for violation", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for violation", index)
		}
	case AssertNoViolations:
	case AssertFinalState:
		if a.Var == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: var and state are required for final_state", index)
		}
		switch ir.State(a.State) {
		case ir.StateUnborn, ir.StateLive, ir.StateBorrowed, ir.StateLiveAlias,
			ir.StateReleased, ir.StateRevoked, ir.StatePoisoned:
		default:
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertTransition:
		if a.Transition == "" {
			return fmt.Errorf("assertions[%d]: transition is required", index)
		}
	case AssertBranch:
		if a.Branch == "" {
			return fmt.Errorf("assertions[%d]: branch is required", index)
		}
	case AssertMetric:
		if !metricNames[a.Metric] {
			return fmt.Errorf("assertions[%d]: unknown metric %q", index, a.Metric)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for metric", index)
		}
	case AssertUnknownSymbol:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for unknown_symbol", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
