package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/seqscore/internal/analysis"
	"github.com/roach88/seqscore/internal/config"
	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Manifest        string
	CorpusDir       string
	Mode            string
	Out             string
	Config          string
	DB              string
	Workers         int
	Rewrite         bool
	FailOnViolation bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs analysis.RunIDGenerator
}

// AnalyzeResult is the payload printed by analyze.
type AnalyzeResult struct {
	RunID       string             `json:"run_id"`
	Library     string             `json:"library"`
	Mode        engine.Mode        `json:"mode"`
	Summary     corpus.Summary     `json:"summary"`
	Ranking     []int64            `json:"ranking"`
	Report      string             `json:"report,omitempty"`
	Rewritten   bool               `json:"rewritten"`
	Regressions []store.Regression `json:"regressions,omitempty"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	return newAnalyzeCommand(&AnalyzeOptions{RootOptions: rootOpts})
}

func newAnalyzeCommand(opts *AnalyzeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Validate, score and rank a corpus",
		Long: `Validate every fixture of a corpus against an interface model, score its
coverage quality and rank the corpus.

The consolidated report is written to --out. Unless --rewrite=false, the
score and Quality header lines of each scored fixture are refreshed in place.

Examples:
  seqscore analyze --manifest cjson.cue --corpus-dir ./corpus --out report.json
  seqscore analyze --manifest ./model --corpus-dir ./corpus --mode permissive --db history.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "path to the CUE manifest file or directory (required)")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.Flags().StringVar(&opts.CorpusDir, "corpus-dir", "", "corpus directory (required)")
	_ = cmd.MarkFlagRequired("corpus-dir")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(engine.ModeStrict), "replay mode (strict|permissive)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "path of the JSON report")
	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML or TOML config file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite run history database")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "number of concurrent workers (default: CPU count)")
	cmd.Flags().BoolVar(&opts.Rewrite, "rewrite", true, "rewrite fixture headers with fresh metrics")
	cmd.Flags().BoolVar(&opts.FailOnViolation, "fail-on-violation", false, "exit 1 when any sequence has violations")

	return cmd
}

// resolveConfig layers the config file and explicitly set flags over the
// defaults.
func resolveConfig(opts *AnalyzeOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("mode") || opts.Config == "" {
		mode, err := engine.ParseMode(opts.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("rewrite") {
		cfg.Rewrite = opts.Rewrite
	}
	if flags.Changed("db") {
		cfg.DB = opts.DB
	}
	return cfg, cfg.Validate()
}

func runAnalyze(opts *AnalyzeOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	model, err := LoadModel(opts.Manifest)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load manifest", err)
	}
	slog.Info("manifest loaded",
		"library", model.Library,
		"functions", len(model.Functions),
		"handle_types", len(model.HandleTypes),
		"hash", model.Hash,
	)

	info, err := os.Stat(opts.CorpusDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "corpus directory not found", err)
	}
	if !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("not a directory: %s", opts.CorpusDir), nil)
	}

	fixtures, err := corpus.Scan(opts.CorpusDir, model, corpus.ScanOptions{Extensions: cfg.Extensions})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScanError, "failed to scan corpus", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := analysis.Run(ctx, model, fixtures, analysis.Options{
		Mode:    cfg.Mode,
		Weights: cfg.Weights,
		Workers: cfg.Workers,
		RunIDs:  opts.RunIDs,
	})
	if errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitCommandError, ErrCodeRunCancelled, "analysis interrupted", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "analysis failed", err)
	}

	result := AnalyzeResult{
		RunID:   res.RunID,
		Library: model.Library,
		Mode:    cfg.Mode,
		Summary: res.Report.Summary(),
		Ranking: res.Report.Ranking,
		Report:  opts.Out,
	}

	if opts.Out != "" {
		if err := corpus.WriteReport(opts.Out, res.Report); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write report", err)
		}
		formatter.VerboseLog("report written to %s", opts.Out)
	}

	if cfg.Rewrite {
		if err := analysis.Rewrite(res); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to rewrite fixture headers", err)
		}
		result.Rewritten = true
	}

	if cfg.DB != "" {
		regressions, err := recordRun(ctx, cfg.DB, res.Report)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		result.Regressions = regressions
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printAnalyzeText(formatter, res.Report, result)
	}

	if opts.FailOnViolation && result.Summary.Violating > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d sequence(s) with violations", result.Summary.Violating))
	}
	return nil
}

// recordRun stores the report and returns the regressions against the
// previous run of the same library.
func recordRun(ctx context.Context, path string, report *corpus.Report) ([]store.Regression, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if _, err := st.WriteRun(ctx, report); err != nil {
		return nil, err
	}
	regressions, err := st.Regressions(ctx, report.RunID)
	if err != nil {
		return nil, err
	}
	for _, r := range regressions {
		slog.Warn("coverage regression",
			"fingerprint", r.Fingerprint,
			"previous", r.Previous,
			"current", r.Current,
			"missing", r.Missing,
		)
	}
	return regressions, nil
}

func printAnalyzeText(f *OutputFormatter, report *corpus.Report, result AnalyzeResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s (%s mode)\n", report.Library, report.Mode)

	for _, s := range report.Sequences {
		switch {
		case len(s.Violations) > 0 || len(s.UnknownSymbols) > 0:
			fmt.Fprintf(w, "  %s %s id=%d\n", markFail(), s.Path, s.ID)
			for _, v := range s.Violations {
				fmt.Fprintf(w, "      %s\n", v.Error())
			}
			for _, u := range s.UnknownSymbols {
				fmt.Fprintf(w, "      %s\n", u.Error())
			}
		case s.Metrics == nil:
			fmt.Fprintf(w, "  %s %s: %s\n", markError(), s.Path, s.Error)
		default:
			line := fmt.Sprintf("  %s %s id=%d score=%s", markOK(), s.Path, s.ID, corpus.FormatScore(s.Metrics.Score))
			if s.Rank > 0 {
				line += fmt.Sprintf(" rank=%d", s.Rank)
			}
			if s.DuplicateOf != nil {
				line += fmt.Sprintf(" duplicate-of=%d", *s.DuplicateOf)
			}
			fmt.Fprintln(w, line)
		}
	}

	sum := result.Summary
	fmt.Fprintf(w, "%d sequence(s): %d ok, %d violating, %d errored; %d ranked, %d duplicate(s)\n",
		sum.Total, sum.OK, sum.Violating, sum.Errored, sum.Ranked, sum.Duplicates)

	ids := make([]string, len(report.Ranking))
	for i, id := range report.Ranking {
		ids[i] = fmt.Sprint(id)
	}
	fmt.Fprintf(w, "ranking: %s\n", strings.Join(ids, " "))

	for _, strategy := range []ir.Strategy{ir.StrategyBaseline, ir.StrategyRandomized, ir.StrategyRuleGuided, ir.StrategyRepaired} {
		st, ok := report.Strategies[strategy]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-12s %d total, %d valid, %d ranked, best %s\n",
			strategy, st.Total, st.Valid, st.Ranked, corpus.FormatScore(st.BestScore))
	}

	for _, r := range result.Regressions {
		if r.Missing {
			fmt.Fprintf(w, "%s regression: shape %s no longer covered (was %s)\n", markFail(), r.Fingerprint, corpus.FormatScore(r.Previous))
			continue
		}
		fmt.Fprintf(w, "%s regression: shape %s %s -> %s\n", markFail(), r.Fingerprint, corpus.FormatScore(r.Previous), corpus.FormatScore(r.Current))
	}
}
