package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// marshalViolations converts violations to JSON TEXT.
// Uses json.Encoder with HTML escaping disabled so messages are stored verbatim.
func marshalViolations(vs []engine.Violation) (string, error) {
	if vs == nil {
		vs = []engine.Violation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(vs); err != nil {
		return "", fmt.Errorf("marshal violations: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalViolations parses JSON TEXT to violations.
func unmarshalViolations(data string) ([]engine.Violation, error) {
	vs := []engine.Violation{}
	if data == "" || data == "[]" {
		return vs, nil
	}
	if err := json.Unmarshal([]byte(data), &vs); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	return vs, nil
}

// marshalMetrics stores metrics in the same single-line form fixtures carry
// in their Quality header. Score is stored in its own column.
func marshalMetrics(q *ir.QualityMetrics) (sql.NullString, sql.NullFloat64, error) {
	if q == nil {
		return sql.NullString{}, sql.NullFloat64{}, nil
	}
	rec, err := q.MarshalQuality()
	if err != nil {
		return sql.NullString{}, sql.NullFloat64{}, fmt.Errorf("marshal metrics: %w", err)
	}
	return sql.NullString{String: rec, Valid: true}, sql.NullFloat64{Float64: q.Score, Valid: true}, nil
}

// unmarshalMetrics is the inverse of marshalMetrics.
func unmarshalMetrics(rec sql.NullString, score sql.NullFloat64) (*ir.QualityMetrics, error) {
	if !rec.Valid {
		return nil, nil
	}
	q := ir.EmptyMetrics()
	if err := q.UnmarshalQuality(rec.String); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	q.Score = score.Float64
	return &q, nil
}
