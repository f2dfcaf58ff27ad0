package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqscore/internal/compiler"
)

// CheckResult holds manifest check results.
type CheckResult struct {
	Valid       bool                       `json:"valid"`
	Library     string                     `json:"library,omitempty"`
	Hash        string                     `json:"hash,omitempty"`
	Functions   int                        `json:"functions"`
	HandleTypes int                        `json:"handle_types"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <manifest>",
		Short: "Load and validate an interface manifest",
		Long: `Load a CUE interface manifest and run schema checks on the model:
every handle type is produced by some function, release-requiring types have
a consuming function, alias indices point at handle parameters and function
names match the declared prefixes.

A manifest that fails to load exits 2; one that loads but fails the schema
checks exits 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	model, err := LoadModel(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load manifest", err)
	}
	formatter.VerboseLog("loaded %s: %d function(s), %d handle type(s)", model.Library, len(model.Functions), len(model.HandleTypes))

	result := CheckResult{
		Library:     model.Library,
		Hash:        model.Hash,
		Functions:   len(model.Functions),
		HandleTypes: len(model.HandleTypes),
		Errors:      compiler.ValidateModel(model),
	}
	result.Valid = len(result.Errors) == 0

	if result.Valid {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "%s %s: %d function(s), %d handle type(s)\n",
			markOK(), result.Library, result.Functions, result.HandleTypes)
		return nil
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "%s %s: validation failed\n", markFail(), result.Library)
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
