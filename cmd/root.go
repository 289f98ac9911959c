// Package cmd defines the rdbdiff command tree.
package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

// RootCommand assembles the rdbdiff CLI.
func RootCommand() *cli.Command {
	return &cli.Command{
		Name:  "rdbdiff",
		Usage: "Compare the schemas of two relational databases",
		Description: `rdbdiff compares tables, columns, indexes, stored procedures, and functions
across two databases and reports every difference it finds. Either side of a
comparison can be a live connection or a snapshot file captured earlier with
the snapshot command.`,
		Commands: []*cli.Command{
			CompareCommand(),
			SnapshotCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI against os.Args.
func Execute(ctx context.Context) error {
	return RootCommand().Run(ctx, os.Args)
}
