package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// QualityMetrics are the coverage-quality metrics of one sequence.
type QualityMetrics struct {
	Density        float64        `json:"density"`
	UniqueBranches map[string]int `json:"unique_branches"`
	LibraryCalls   []string       `json:"library_calls"`
	CriticalCalls  []string       `json:"critical_calls"`
	Visited        int            `json:"visited"`
	Score          float64        `json:"score"`
}

// qualityRecord is the header form of QualityMetrics: score is published on
// its own header line, so it is not part of the record.
type qualityRecord struct {
	Density        float64        `json:"density"`
	UniqueBranches map[string]int `json:"unique_branches"`
	LibraryCalls   []string       `json:"library_calls"`
	CriticalCalls  []string       `json:"critical_calls"`
	Visited        int            `json:"visited"`
}

// EmptyMetrics returns zero metrics with non-nil collections.
func EmptyMetrics() QualityMetrics {
	return QualityMetrics{
		UniqueBranches: map[string]int{},
		LibraryCalls:   []string{},
		CriticalCalls:  []string{},
	}
}

// Normalize replaces nil collections with empty ones and sorts the sets.
func (q *QualityMetrics) Normalize() {
	if q.UniqueBranches == nil {
		q.UniqueBranches = map[string]int{}
	}
	if q.LibraryCalls == nil {
		q.LibraryCalls = []string{}
	}
	if q.CriticalCalls == nil {
		q.CriticalCalls = []string{}
	}
	slices.Sort(q.LibraryCalls)
	slices.Sort(q.CriticalCalls)
}

// BranchKeys returns the branch keys in sorted order.
func (q QualityMetrics) BranchKeys() []string {
	keys := make([]string, 0, len(q.UniqueBranches))
	for k := range q.UniqueBranches {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalQuality renders the single-line Quality header record.
// Keys appear in the fixed order density, unique_branches, library_calls,
// critical_calls, visited.
func (q QualityMetrics) MarshalQuality() (string, error) {
	n := q
	n.Normalize()
	rec := qualityRecord{
		Density:        n.Density,
		UniqueBranches: n.UniqueBranches,
		LibraryCalls:   n.LibraryCalls,
		CriticalCalls:  n.CriticalCalls,
		Visited:        n.Visited,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("marshal quality: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// qualityKeys are the keys every Quality header record carries.
var qualityKeys = []string{"density", "unique_branches", "library_calls", "critical_calls", "visited"}

// UnmarshalQuality parses a Quality header record. The record must be a
// single JSON object with exactly the keys of qualityKeys.
// Score is left untouched.
func (q *QualityMetrics) UnmarshalQuality(s string) error {
	dec := json.NewDecoder(strings.NewReader(s))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("unmarshal quality: %w", err)
	}
	if dec.More() {
		return errors.New("unmarshal quality: trailing data after record")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unmarshal quality: trailing data after record")
	}
	if fields == nil {
		return errors.New("unmarshal quality: record is not an object")
	}
	for key := range fields {
		if !slices.Contains(qualityKeys, key) {
			return fmt.Errorf("unmarshal quality: unknown key %q", key)
		}
	}
	for _, key := range qualityKeys {
		if _, ok := fields[key]; !ok {
			return fmt.Errorf("unmarshal quality: missing key %q", key)
		}
	}

	var rec qualityRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return fmt.Errorf("unmarshal quality: %w", err)
	}

	q.Density = rec.Density
	q.UniqueBranches = rec.UniqueBranches
	q.LibraryCalls = rec.LibraryCalls
	q.CriticalCalls = rec.CriticalCalls
	q.Visited = rec.Visited
	q.Normalize()
	return nil
}
