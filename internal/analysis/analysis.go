// Package analysis runs validation and scoring over a whole corpus.
//
// Each fixture is replayed and scored independently by a bounded pool of
// workers; every worker writes only its own result slot. The single
// cross-fixture step, ranking, runs after the pool drains.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/rank"
	"github.com/roach88/seqscore/internal/score"
)

// Options configures a run.
type Options struct {
	Mode    engine.Mode
	Weights score.Weights
	Workers int
	RunIDs  RunIDGenerator
}

// Outcome is the analysis of one fixture.
type Outcome struct {
	Fixture     *corpus.Fixture
	Validation  *engine.ValidationResult
	Metrics     *ir.QualityMetrics
	Fingerprint string
	Err         error // header or scoring error
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Outcomes []Outcome
	Ranking  rank.Ranking
	Report   *corpus.Report
}

// Run validates, scores and ranks fixtures.
//
// Sequence-level failures are captured per outcome and never fail the run.
// Cancellation is checked before each fixture; a cancelled run returns the
// context error.
func Run(ctx context.Context, model *ir.InterfaceModel, fixtures []*corpus.Fixture, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = engine.ModeStrict
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.RunIDs == nil {
		opts.RunIDs = UUIDv7Generator{}
	}

	res := &Result{
		RunID:    opts.RunIDs.Generate(),
		Outcomes: make([]Outcome, len(fixtures)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(opts.Workers, len(fixtures))))

	for i, f := range fixtures {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res.Outcomes[i] = analyze(model, f, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]rank.Entry, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		if o.Fixture.Err != nil {
			continue
		}
		e := rank.Entry{
			ID:          o.Fixture.Sequence.ID,
			Path:        o.Fixture.Path,
			Strategy:    o.Fixture.Sequence.Strategy,
			OK:          o.Validation.OK,
			Scored:      o.Metrics != nil,
			Fingerprint: o.Fingerprint,
		}
		if o.Metrics != nil {
			e.Metrics = *o.Metrics
		}
		entries = append(entries, e)
	}

	ranking, err := rank.Rank(entries)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	res.Ranking = ranking
	res.Report = buildReport(model, res, opts.Mode)

	s := res.Report.Summary()
	slog.Info("analysis complete",
		"run_id", res.RunID,
		"library", model.Library,
		"sequences", s.Total,
		"ok", s.OK,
		"violating", s.Violating,
		"errored", s.Errored,
		"ranked", s.Ranked,
		"duplicates", s.Duplicates,
	)
	return res, nil
}

func analyze(model *ir.InterfaceModel, f *corpus.Fixture, opts Options) Outcome {
	o := Outcome{Fixture: f}
	if f.Err != nil {
		o.Err = f.Err
		return o
	}

	o.Validation = engine.Validate(model, f.Sequence, engine.Options{Mode: opts.Mode})

	q, err := score.Score(model, f.Sequence, o.Validation, opts.Weights)
	if err != nil {
		o.Err = err
		slog.Debug("sequence not scored", "path", f.Path, "error", err)
		return o
	}
	fp, err := score.Fingerprint(q)
	if err != nil {
		o.Err = err
		return o
	}
	o.Metrics = &q
	o.Fingerprint = fp
	return o
}

func buildReport(model *ir.InterfaceModel, res *Result, mode engine.Mode) *corpus.Report {
	positions := make(map[string]int, len(res.Ranking.Ranked))
	for _, r := range res.Ranking.Ranked {
		positions[r.Path] = r.Position
	}
	dupOf := make(map[string]int64, len(res.Ranking.Duplicates))
	for _, d := range res.Ranking.Duplicates {
		dupOf[d.Path] = d.Of
	}

	report := &corpus.Report{
		Version:       ir.ReportVersion,
		EngineVersion: ir.EngineVersion,
		RunID:         res.RunID,
		Library:       model.Library,
		ManifestHash:  model.Hash,
		Mode:          mode,
		Sequences:     make([]corpus.SequenceReport, 0, len(res.Outcomes)),
		Ranking:       res.Ranking.IDs(),
		Strategies:    res.Ranking.Strategies,
	}

	for _, o := range res.Outcomes {
		f := o.Fixture
		sr := corpus.SequenceReport{
			ID:          f.Sequence.ID,
			Path:        f.Path,
			Strategy:    f.Sequence.Strategy,
			Metrics:     o.Metrics,
			Violations:  []engine.Violation{},
			Fingerprint: o.Fingerprint,
			Rank:        positions[f.Path],
		}
		if v := o.Validation; v != nil {
			sr.OK = v.OK
			sr.Violations = v.Violations
			if len(v.UnknownSymbols) > 0 {
				sr.UnknownSymbols = v.UnknownSymbols
			}
			if len(v.LeakCandidates) > 0 {
				sr.LeakCandidates = v.LeakCandidates
			}
		}
		if of, ok := dupOf[f.Path]; ok {
			sr.DuplicateOf = &of
		}
		if o.Err != nil {
			sr.Error = o.Err.Error()
		}
		report.Sequences = append(report.Sequences, sr)
	}
	return report
}

// Rewrite writes fresh metrics into the header of every scored fixture.
// Fixtures that could not be scored keep their header. All fixtures are
// attempted; the returned error joins every failure.
func Rewrite(res *Result) error {
	var errs []error
	n := 0
	for _, o := range res.Outcomes {
		if o.Metrics == nil {
			continue
		}
		if err := corpus.RewriteFixture(o.Fixture, *o.Metrics); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	slog.Debug("headers rewritten", "count", n, "failed", len(errs))
	return errors.Join(errs...)
}
