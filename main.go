package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"

	"github.com/reke592/rdbdiff/cmd"
	"github.com/reke592/rdbdiff/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Printf("rdbdiff %s (commit: %s, built: %s)\n", version, commit, date)
			os.Exit(0)
		}
	}

	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 1 when the comparison
// found differences, 2 for everything else. The difference sentinel is not
// printed; the report itself is the message.
func exitCode(err error) int {
	if errors.IsType(err, errors.ErrTypeDifferences) {
		return 1
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var typed *errors.Error
	if goerrors.As(err, &typed) {
		for _, suggestion := range typed.Suggestions {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
		}
	}

	return 2
}
