// Package score derives coverage-quality metrics from a validated sequence.
//
// Metrics are a pure function of the model, the sequence and its
// ValidationResult: library_calls and critical_calls come from the sequence
// itself, unique_branches from the per-call argument shapes the tracker
// observed, and visited from the distinct lifecycle transitions it recorded.
// The scalar score is a weighted sum whose weights are run configuration.
package score
