package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
)

// Regression is a shape fingerprint whose best score dropped between two
// runs of the same library.
type Regression struct {
	Fingerprint string  `json:"fingerprint"`
	Previous    float64 `json:"previous"`
	Current     float64 `json:"current"`
	Missing     bool    `json:"missing"` // no valid sequence has this shape any more
}

// Regressions compares run with the previous run of its library.
// Returns an empty slice when there is no previous run.
func (s *Store) Regressions(ctx context.Context, runID string) ([]Regression, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	prev, err := s.PreviousRun(ctx, run)
	if errors.Is(err, ErrNotFound) {
		return []Regression{}, nil
	}
	if err != nil {
		return nil, err
	}

	before, err := s.BestByFingerprint(ctx, prev.ID)
	if err != nil {
		return nil, err
	}
	after, err := s.BestByFingerprint(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	out := []Regression{}
	for fp, was := range before {
		now, ok := after[fp]
		switch {
		case !ok:
			out = append(out, Regression{Fingerprint: fp, Previous: was, Missing: true})
		case now < was:
			out = append(out, Regression{Fingerprint: fp, Previous: was, Current: now})
		}
	}
	slices.SortFunc(out, func(a, b Regression) int {
		return cmp.Compare(a.Fingerprint, b.Fingerprint)
	})
	return out, nil
}
