package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqscore/internal/config"
	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/score"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Manifest string
	Mode     string
	Config   string
}

// TraceCall is one replayed call.
type TraceCall struct {
	Index       int                `json:"index"`
	Line        int                `json:"line,omitempty"`
	Call        string             `json:"call"`
	Known       bool               `json:"known"`
	Branch      string             `json:"branch,omitempty"`
	Transitions []string           `json:"transitions,omitempty"`
	Violations  []engine.Violation `json:"violations,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Path           string                      `json:"path"`
	Library        string                      `json:"library"`
	Mode           engine.Mode                 `json:"mode"`
	OK             bool                        `json:"ok"`
	Halted         bool                        `json:"halted"`
	Calls          []TraceCall                 `json:"calls"`
	Violations     []engine.Violation          `json:"violations"`
	UnknownSymbols []engine.UnknownSymbolError `json:"unknown_symbols"`
	LeakCandidates []engine.LeakCandidate      `json:"leak_candidates"`
	FinalStates    map[string]ir.State         `json:"final_states"`
	Metrics        *ir.QualityMetrics          `json:"metrics,omitempty"`
	ScoreError     string                      `json:"score_error,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <fixture>",
		Short: "Replay one fixture call by call",
		Long: `Replay a single fixture against the interface model and show, for each
extracted call, its branch key, the state transitions it caused and any
violations. The fixture needs no header.

Examples:
  seqscore trace --manifest cjson.cue corpus/baseline/parse_0001.c
  seqscore trace --manifest cjson.cue --mode permissive --format json fixture.c`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "path to the CUE manifest file or directory (required)")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(engine.ModeStrict), "replay mode (strict|permissive)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML or TOML config file for scorer weights")

	return cmd
}

func runTrace(opts *TraceOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mode, err := engine.ParseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid mode", err)
	}
	cfg := config.Default()
	if opts.Config != "" {
		if cfg, err = config.Load(opts.Config); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
		}
	}

	model, err := LoadModel(opts.Manifest)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load manifest", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read fixture", err)
	}

	seq := &ir.SequenceRecord{
		Path:     filepath.ToSlash(path),
		Strategy: ir.StrategyBaseline,
		Calls:    corpus.NewExtractor(model).Extract(src),
	}
	if h, err := corpus.ParseHeader(src); err == nil {
		seq.ID = h.ID
		seq.Strategy = corpus.StrategyFor("", h.Strategy)
	} else {
		formatter.VerboseLog("no usable header: %v", err)
	}

	result := engine.Validate(model, seq, engine.Options{Mode: mode})
	out := TraceResult{
		Path:           seq.Path,
		Library:        model.Library,
		Mode:           mode,
		OK:             result.OK,
		Halted:         result.Halted,
		Calls:          make([]TraceCall, 0, len(result.Calls)),
		Violations:     result.Violations,
		UnknownSymbols: result.UnknownSymbols,
		LeakCandidates: result.LeakCandidates,
		FinalStates:    result.FinalStates,
	}
	for _, ct := range result.Calls {
		tc := TraceCall{
			Index:      ct.Index,
			Line:       ct.Line,
			Call:       seq.Calls[ct.Index].String(),
			Known:      ct.Known,
			Violations: ct.Violations,
		}
		if ct.Known {
			tc.Branch = score.BranchKey(ct.Function, ct.Shapes)
		}
		for _, tr := range ct.Transitions {
			tc.Transitions = append(tc.Transitions, tr.String())
		}
		out.Calls = append(out.Calls, tc)
	}

	if q, err := score.Score(model, seq, result, cfg.Weights); err == nil {
		out.Metrics = &q
	} else {
		out.ScoreError = err.Error()
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	printTraceText(formatter, out)
	return nil
}

func printTraceText(f *OutputFormatter, t TraceResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s (%s, %s mode)\n", t.Path, t.Library, t.Mode)

	for _, c := range t.Calls {
		mark := markOK()
		switch {
		case !c.Known:
			mark = markError()
		case len(c.Violations) > 0:
			mark = markFail()
		}
		fmt.Fprintf(w, "  %s #%d", mark, c.Index)
		if c.Line > 0 {
			fmt.Fprintf(w, " L%d", c.Line)
		}
		fmt.Fprintf(w, " %s\n", c.Call)
		if c.Branch != "" {
			fmt.Fprintf(w, "      branch %s\n", c.Branch)
		}
		if len(c.Transitions) > 0 {
			fmt.Fprintf(w, "      %s\n", strings.Join(c.Transitions, ", "))
		}
		for _, v := range c.Violations {
			fmt.Fprintf(w, "      %s\n", v.Error())
		}
		if !c.Known {
			fmt.Fprintf(w, "      unknown symbol\n")
		}
	}

	for _, v := range t.Violations {
		if v.Call == engine.EndOfSequence {
			fmt.Fprintf(w, "  %s end: %s\n", markFail(), v.Error())
		}
	}
	for _, l := range t.LeakCandidates {
		fmt.Fprintf(w, "  %s possible leak: %s rebound at %s\n", markError(), l.Var, l.Site)
	}

	if t.Halted {
		fmt.Fprintln(w, "halted")
	}
	if t.Metrics != nil {
		fmt.Fprintf(w, "score %s, visited %d, %d branch(es)\n",
			corpus.FormatScore(t.Metrics.Score), t.Metrics.Visited, len(t.Metrics.UniqueBranches))
	} else {
		fmt.Fprintf(w, "not scored: %s\n", t.ScoreError)
	}
}
