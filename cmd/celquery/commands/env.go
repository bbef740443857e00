package commands

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/container"
	"github.com/satishbabariya/celquery/internal/core/filter/environment"
	"github.com/satishbabariya/celquery/internal/core/schema"
	schemadomain "github.com/satishbabariya/celquery/internal/core/schema/domain"
	"github.com/satishbabariya/celquery/internal/ui"
	"github.com/satishbabariya/celquery/internal/watch"
)

// NewEnvCommand creates the env command.
func NewEnvCommand(opts *Options) *cobra.Command {
	var (
		blacklist []string
		watchFile bool
	)

	cmd := &cobra.Command{
		Use:   "env <entity>",
		Short: "List the filterable field paths of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, configured := opts.entity(args[0])
			hidden := slices.Concat(configured, blacklist)

			show := func() error {
				registry, err := container.LoadSchema(cmd.Context(), opts.Config().SchemaPath)
				if err != nil {
					return err
				}
				env, err := environment.NewBuilder(registry, nil).Build(model, hidden)
				if err != nil {
					return err
				}
				if err := printEnvironment(env); err != nil {
					return err
				}
				return printRelations(registry, env.Root())
			}

			if !watchFile {
				return show()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchSchema(ctx, opts.Config().SchemaPath, func() error {
				if err := show(); err != nil {
					ui.PrintError("%v", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&blacklist, "blacklist", nil, "additional field paths to hide")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "re-print whenever the schema file changes")
	return cmd
}

func watchSchema(ctx context.Context, path string, fn func() error) error {
	w, err := watch.NewWatcher(path, watch.DefaultDebounce, fn)
	if err != nil {
		return err
	}
	ui.PrintInfo("watching %s, press Ctrl+C to stop", path)
	return w.Run(ctx)
}

func printEnvironment(env *environment.Environment) error {
	ui.PrintSection(env.Root() + " (" + env.Table() + ")")

	rows := make([][]string, 0, env.Len())
	for _, f := range env.Fields() {
		rows = append(rows, []string{f.Path, f.Type.String(), f.Model, f.Column})
	}
	return ui.PrintTable([]string{"PATH", "TYPE", "MODEL", "COLUMN"}, rows)
}

// printRelations lists the relations declared on model with their join columns.
func printRelations(registry *schema.MetadataRegistry, model string) error {
	relations := registry.GetAllRelations(model)
	if len(relations) == 0 {
		return nil
	}
	slices.SortFunc(relations, func(a, b schemadomain.Relation) int { return strings.Compare(a.Name, b.Name) })

	ui.PrintSection("Relations")
	rows := make([][]string, 0, len(relations))
	for _, rel := range relations {
		rows = append(rows, []string{
			rel.Name,
			string(rel.RelationType),
			rel.ToModel,
			strings.Join(rel.FromFields, ",") + " -> " + strings.Join(rel.ToFields, ","),
		})
	}
	return ui.PrintTable([]string{"NAME", "TYPE", "TARGET", "JOIN"}, rows)
}
