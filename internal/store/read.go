package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
)

// Run is one recorded analysis run.
type Run struct {
	ID            string
	Seq           int64
	Library       string
	ManifestHash  string
	Mode          engine.Mode
	EngineVersion string
	ReportVersion string
}

// SequenceRow is one fixture outcome within a run.
type SequenceRow struct {
	RunID       string
	Path        string
	SequenceID  int64
	Strategy    ir.Strategy
	OK          bool
	Metrics     *ir.QualityMetrics // nil when the fixture was not scored
	Violations  []engine.Violation
	Fingerprint string
	Error       string
}

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `id, seq, library, manifest_hash, mode, engine_version, report_version`

// ReadRun returns a run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRunRow(row)
}

// LatestRun returns the most recent run for library.
// Returns ErrNotFound if the library has no runs.
func (s *Store) LatestRun(ctx context.Context, library string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE library = ?
		ORDER BY seq DESC
		LIMIT 1
	`, library)
	return scanRunRow(row)
}

// PreviousRun returns the run of the same library recorded immediately
// before run. Returns ErrNotFound if there is none.
func (s *Store) PreviousRun(ctx context.Context, run Run) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE library = ? AND seq < ?
		ORDER BY seq DESC
		LIMIT 1
	`, run.Library, run.Seq)
	return scanRunRow(row)
}

// ListRuns returns every run of library, oldest first.
func (s *Store) ListRuns(ctx context.Context, library string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE library = ?
		ORDER BY seq ASC
	`, library)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var mode string
		if err := rows.Scan(&r.ID, &r.Seq, &r.Library, &r.ManifestHash, &mode, &r.EngineVersion, &r.ReportVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Mode = engine.Mode(mode)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunSequences returns the fixture outcomes of a run ordered by path.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) RunSequences(ctx context.Context, runID string) ([]SequenceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, path, sequence_id, strategy, ok, score, metrics, violations, fingerprint, error
		FROM sequences
		WHERE run_id = ?
		ORDER BY path COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sequences: %w", err)
	}
	defer rows.Close()

	out := []SequenceRow{}
	for rows.Next() {
		var r SequenceRow
		var strategy, violations string
		var metrics sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Path, &r.SequenceID, &strategy, &r.OK, &score, &metrics, &violations, &r.Fingerprint, &r.Error); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		r.Strategy = ir.Strategy(strategy)
		if r.Metrics, err = unmarshalMetrics(metrics, score); err != nil {
			return nil, err
		}
		if r.Violations, err = unmarshalViolations(violations); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}
	return out, nil
}

// Rankings returns the ranked sequence ids of a run in rank order.
func (s *Store) Rankings(ctx context.Context, runID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence_id FROM rankings
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rankings: %w", err)
	}
	return ids, nil
}

// BestByFingerprint returns, for one run, the best score reached by each
// shape fingerprint among sequences that validated and were scored.
func (s *Store) BestByFingerprint(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, MAX(score)
		FROM sequences
		WHERE run_id = ? AND ok = 1 AND score IS NOT NULL AND fingerprint != ''
		GROUP BY fingerprint
		ORDER BY fingerprint COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query best scores: %w", err)
	}
	defer rows.Close()

	best := make(map[string]float64)
	for rows.Next() {
		var fp string
		var score float64
		if err := rows.Scan(&fp, &score); err != nil {
			return nil, fmt.Errorf("scan best score: %w", err)
		}
		best[fp] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate best scores: %w", err)
	}
	return best, nil
}

func scanRunRow(row *sql.Row) (Run, error) {
	var r Run
	var mode string
	err := row.Scan(&r.ID, &r.Seq, &r.Library, &r.ManifestHash, &mode, &r.EngineVersion, &r.ReportVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Mode = engine.Mode(mode)
	return r, nil
}
