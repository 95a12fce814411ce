package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/text2visuals/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Driver     string // overrides store.driver
	Database   string // overrides store.path

	prepared bool
	config   config.Config
	logger   *slog.Logger
	traceID  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the t2v CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "t2v",
		Short: "t2v - text to visuals",
		Long:  "Resolve generated node/edge graphs into trees and manage the local history of generated mindmaps and flowcharts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "history substrate driver (memory|sqlite|file)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "sqlite database file or file-driver directory")

	// Add subcommands
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// prepare validates global flags, loads configuration and installs the
// logger. Safe to call more than once; only the first call does work.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.prepared {
		return nil
	}
	if o.Format == "" {
		o.Format = "text"
	}
	// Validate format flag
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Driver != "" {
		cfg.Store.Driver = o.Driver
	}
	if o.Database != "" {
		cfg.Store.Path = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.config = cfg
	o.logger = cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(o.logger)
	o.traceID = newTraceID()
	o.prepared = true

	o.logger.Debug("configuration loaded",
		"trace_id", o.traceID,
		"driver", cfg.Store.Driver,
		"path", cfg.Store.Path,
		"capacity", cfg.Store.Capacity)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceID:   o.traceID,
	}
}

// commandContext returns the context the command was executed with, so
// cancellation from main reaches the history substrate.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
