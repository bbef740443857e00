// Package commands implements the celquery CLI commands.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/config"
	"github.com/satishbabariya/celquery/internal/container"
	"github.com/satishbabariya/celquery/internal/debug"
	"github.com/satishbabariya/celquery/internal/ui"
	"github.com/satishbabariya/celquery/internal/version"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigFile string
	SchemaPath string
	Debug      bool
	NoColor    bool

	cfg *config.Config
}

// Config returns the configuration loaded before the command ran.
func (o *Options) Config() *config.Config {
	return o.cfg
}

func (o *Options) load(cmd *cobra.Command) error {
	ui.Out = cmd.OutOrStdout()
	ui.Err = cmd.ErrOrStderr()
	if o.NoColor {
		ui.DisableColor()
	}

	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	if o.SchemaPath != "" {
		cfg.SchemaPath = o.SchemaPath
	}
	if o.Debug {
		cfg.Debug = true
	}
	debug.InitWith(cmd.ErrOrStderr(), debug.FormatText, cfg.Debug)
	debug.Debug("configuration loaded", "file", cfg.File, "schema", cfg.SchemaPath)

	o.cfg = cfg
	return nil
}

// container builds a container for the loaded configuration.
func (o *Options) container(ctx context.Context) (*container.Container, error) {
	c, err := container.NewContainer(ctx, o.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return c, nil
}

// entity resolves an entity name from the configuration into its model and
// blacklist. Unconfigured names are taken as model names.
func (o *Options) entity(name string) (string, []string) {
	for key, e := range o.cfg.Entities {
		if strings.EqualFold(key, name) {
			return e.Model, e.Blacklist
		}
	}
	return name, nil
}

// NewRootCommand creates the celquery command tree.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "celquery",
		Short:         "Compile CEL filter expressions into relational queries",
		Long:          "celquery translates CEL filter expressions over a declared schema into predicate trees and SQL, and serves them over HTTP.",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default searches for .celquery.yaml)")
	flags.StringVar(&opts.SchemaPath, "schema", "", "schema file, overrides schema_path")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(
		NewInitCommand(opts),
		NewTranslateCommand(opts),
		NewEnvCommand(opts),
		NewValidateCommand(opts),
		NewQueryCommand(opts),
		NewServeCommand(opts),
		NewVersionCommand(opts),
	)
	return root
}
