package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/seqscore/internal/corpus"
)

// WriteRun records a report: the run row, one sequences row per fixture and
// the ranking. Everything is written in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run id
// twice leaves the first write in place and returns inserted=false.
func (s *Store) WriteRun(ctx context.Context, r *corpus.Report) (inserted bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, seq, library, manifest_hash, mode, engine_version, report_version)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			r.RunID,
			seq,
			r.Library,
			r.ManifestHash,
			string(r.Mode),
			r.EngineVersion,
			r.Version,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rows == 0 {
			return nil
		}

		if err := insertSequences(ctx, tx, r); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	return inserted, nil
}

// insertSequences writes the per-fixture rows and the ranking of r.
func insertSequences(ctx context.Context, tx *sql.Tx, r *corpus.Report) error {
	for _, sr := range r.Sequences {
		violations, err := marshalViolations(sr.Violations)
		if err != nil {
			return fmt.Errorf("%s: %w", sr.Path, err)
		}
		metrics, score, err := marshalMetrics(sr.Metrics)
		if err != nil {
			return fmt.Errorf("%s: %w", sr.Path, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sequences
			(run_id, path, sequence_id, strategy, ok, score, metrics, violations, fingerprint, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.RunID,
			sr.Path,
			sr.ID,
			string(sr.Strategy),
			sr.OK,
			score,
			metrics,
			violations,
			sr.Fingerprint,
			sr.Error,
		)
		if err != nil {
			return fmt.Errorf("sequence %s: %w", sr.Path, err)
		}

		if sr.Rank == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rankings (run_id, position, path, sequence_id)
			VALUES (?, ?, ?, ?)
		`, r.RunID, sr.Rank, sr.Path, sr.ID)
		if err != nil {
			return fmt.Errorf("ranking %s: %w", sr.Path, err)
		}
	}
	return nil
}
