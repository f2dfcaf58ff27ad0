// Command seqscore validates, scores and ranks fuzz-harness call sequences.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/seqscore/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report their own ExitErrors; anything else is a usage error
	// from cobra.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
