package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/reke592/rdbdiff/internal/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the active configuration after merging built-in defaults, the config file, RDBDIFF_* environment variables, and flags.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "init",
				Usage: "write the active configuration to the config file",
			},
		},
		Action: runConfig,
	}
}

func runConfig(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if cmd.Bool("init") {
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Wrote configuration to %s\n", config.GetConfigPath())

		return nil
	}

	return printConfig(cfg, os.Stdout)
}

func printConfig(cfg *config.Config, w io.Writer) error {
	fmt.Fprintln(w, "Active Configuration")
	fmt.Fprintln(w, "====================")

	fmt.Fprintln(w, "\nCompare:")
	fmt.Fprintf(w, "  Eager: %t\n", cfg.Compare.Eager)
	fmt.Fprintf(w, "  Check Whitespace: %t\n", cfg.Compare.CheckWhitespace)

	reportFile := cfg.Output.File
	if reportFile == "" {
		reportFile = "(stdout)"
	}

	fmt.Fprintln(w, "\nOutput:")
	fmt.Fprintf(w, "  Format: %s\n", cfg.Output.Format)
	fmt.Fprintf(w, "  File: %s\n", reportFile)
	fmt.Fprintf(w, "  No Color: %t\n", cfg.Output.NoColor)
	fmt.Fprintf(w, "  Export Dir: %s\n", cfg.Output.ExportDir)

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  Connect Timeout: %s\n", cfg.Database.ConnectTimeout)
	fmt.Fprintf(w, "  Query Timeout: %s\n", cfg.Database.QueryTimeout)
	fmt.Fprintf(w, "  Max Open Conns: %d\n", cfg.Database.MaxOpenConns)
	fmt.Fprintf(w, "  Max Idle Conns: %d\n", cfg.Database.MaxIdleConns)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
	}

	configPath := config.GetConfigPath()
	state := "not found, using defaults"

	if _, err := os.Stat(configPath); err == nil {
		state = "loaded"
	}

	fmt.Fprintf(w, "\nConfig file: %s (%s)\n", configPath, state)

	return nil
}
