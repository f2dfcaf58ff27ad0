package score

import "fmt"

// Weights are the coefficients of the scalar score.
type Weights struct {
	Density       float64 `json:"density" yaml:"density" toml:"density"`
	Branches      float64 `json:"branches" yaml:"branches" toml:"branches"`
	LibraryCalls  float64 `json:"library_calls" yaml:"library_calls" toml:"library_calls"`
	CriticalCalls float64 `json:"critical_calls" yaml:"critical_calls" toml:"critical_calls"`
	Visited       float64 `json:"visited" yaml:"visited" toml:"visited"`
	Leak          float64 `json:"leak" yaml:"leak" toml:"leak"`
}

// DefaultWeights returns the weights used when no configuration overrides
// them. Leak candidates count against a sequence.
func DefaultWeights() Weights {
	return Weights{
		Density:       1,
		Branches:      1,
		LibraryCalls:  1,
		CriticalCalls: 2,
		Visited:       1,
		Leak:          -0.5,
	}
}

// Validate rejects weights that would reward leaks.
func (w Weights) Validate() error {
	if w.Leak > 0 {
		return fmt.Errorf("leak weight must not be positive, got %g", w.Leak)
	}
	for name, v := range map[string]float64{
		"density":        w.Density,
		"branches":       w.Branches,
		"library_calls":  w.LibraryCalls,
		"critical_calls": w.CriticalCalls,
		"visited":        w.Visited,
	} {
		if v < 0 {
			return fmt.Errorf("%s weight must not be negative, got %g", name, v)
		}
	}
	return nil
}
