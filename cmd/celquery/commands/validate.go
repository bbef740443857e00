package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/container"
	"github.com/satishbabariya/celquery/internal/core/filter/environment"
	"github.com/satishbabariya/celquery/internal/ui"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every entity's schema can be filtered",
		Long:  "Validate parses the schema and builds the filter environment of every configured entity, or of every model when no entities are configured.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config()
			registry, err := container.LoadSchema(cmd.Context(), cfg.SchemaPath)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			type target struct{ name, model string }
			var targets []target
			if len(cfg.Entities) == 0 {
				for _, m := range registry.ModelNames() {
					targets = append(targets, target{m, m})
				}
			} else {
				for _, name := range cfg.EntityNames() {
					targets = append(targets, target{name, cfg.Entities[name].Model})
				}
			}

			builder := environment.NewBuilder(registry, nil)
			rows := make([][]string, 0, len(targets))
			failed := 0
			for _, t := range targets {
				env, err := builder.Build(t.model, cfg.Entities[t.name].Blacklist)
				if err != nil {
					failed++
					rows = append(rows, []string{t.name, t.model, "-", err.Error()})
					continue
				}
				rows = append(rows, []string{t.name, t.model, strconv.Itoa(env.Len()), "ok"})
			}
			if err := ui.PrintTable([]string{"ENTITY", "MODEL", "PATHS", "STATUS"}, rows); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("validation failed: %d of %d entities cannot be filtered", failed, len(targets))
			}
			ui.PrintSuccess("Schema %s is valid", cfg.SchemaPath)
			return nil
		},
	}
}
