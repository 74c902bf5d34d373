// Package cli implements the gedbql command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/vinicius-lino-figueiredo/gedbql"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gedbql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gedbql",
		Short: "gedbql - embedded document query engine",
		Long:  "Inspect how the gedbql engine reads statements and which settings it runs with.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine events to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(NewTokenizeCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig reads the settings named by the flags.
func loadConfig(opts *RootOptions) (gedbql.Config, error) {
	return gedbql.LoadConfig(opts.ConfigPath)
}

// newEngine builds an engine for one command. Engine logs go to the error
// stream of cmd when verbose, and nowhere otherwise.
func newEngine(opts *RootOptions, cmd *cobra.Command) (gedbql.Engine, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := logging.Discard()
	if opts.Verbose {
		logCfg := cfg.Log
		logCfg.Output = cmd.ErrOrStderr()
		if logger, err = logging.New(logCfg); err != nil {
			return nil, err
		}
	}
	logger.Debug("engine configured", slog.String("config", opts.ConfigPath))

	return gedbql.NewEngine(gedbql.WithConfig(cfg), gedbql.WithLogger(logger))
}
