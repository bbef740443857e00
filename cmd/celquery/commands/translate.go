package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/adapters/database"
	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/query/compiler"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/ui"
)

type joinOutput struct {
	Path  string `json:"path" yaml:"path"`
	Table string `json:"table" yaml:"table"`
	Alias string `json:"alias" yaml:"alias"`
	On    string `json:"on" yaml:"on"`
}

type translationOutput struct {
	Root      string         `json:"root" yaml:"root"`
	Table     string         `json:"table" yaml:"table"`
	Distinct  bool           `json:"distinct" yaml:"distinct"`
	Joins     []joinOutput   `json:"joins,omitempty" yaml:"joins,omitempty"`
	Predicate map[string]any `json:"predicate" yaml:"predicate"`
	Tree      string         `json:"tree" yaml:"tree"`
	SQL       string         `json:"sql,omitempty" yaml:"sql,omitempty"`
	Args      []string       `json:"args,omitempty" yaml:"args,omitempty"`
}

func newTranslationOutput(t *filter.Translation) translationOutput {
	out := translationOutput{
		Root:      t.Root,
		Table:     t.Table,
		Distinct:  t.Distinct,
		Predicate: filter.Describe(t.Predicate),
		Tree:      fmt.Sprint(t.Predicate),
	}
	for _, j := range t.Joins {
		on := make([]string, len(j.On))
		for i, c := range j.On {
			on[i] = fmt.Sprintf("%s.%s = %s.%s", j.Alias, c.Child, j.ParentAlias(compiler.RootAlias), c.Parent)
		}
		out.Joins = append(out.Joins, joinOutput{Path: j.Path, Table: j.Table, Alias: j.Alias, On: strings.Join(on, " AND ")})
	}
	return out
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(opts *Options) *cobra.Command {
	var (
		blacklist []string
		output    string
		withSQL   bool
		dialect   string
	)

	cmd := &cobra.Command{
		Use:   "translate <entity> <expression>",
		Short: "Translate a filter expression into a predicate tree",
		Example: `  celquery translate content 'metadata.datakey == "author"'
  celquery translate content 'name.startsWith("Foo")' --sql --dialect postgres -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.Context())
			if err != nil {
				return err
			}

			model, configured := opts.entity(args[0])
			t, err := c.Translator().Translate(cmd.Context(), args[1], model, slices.Concat(configured, blacklist))
			if err != nil {
				return err
			}
			out := newTranslationOutput(t)

			if withSQL {
				if dialect == "" {
					dialect = opts.Config().Database.Provider
				}
				d, err := database.DialectOf(dialect)
				if err != nil {
					return err
				}
				compiled, err := compiler.NewSQLCompiler(d).Compile(cmd.Context(), domain.FromTranslation(t))
				if err != nil {
					return err
				}
				out.SQL = compiled.SQL.Query
				for _, a := range compiled.SQL.Args {
					out.Args = append(out.Args, filter.FormatValue(a))
				}
			}

			return printTranslation(cmd, out, output)
		},
	}

	cmd.Flags().StringSliceVar(&blacklist, "blacklist", nil, "additional field paths to hide")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, yaml or markdown")
	cmd.Flags().BoolVar(&withSQL, "sql", false, "also render SQL")
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (default: database.provider)")
	return cmd
}

func printTranslation(cmd *cobra.Command, out translationOutput, format string) error {
	w := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)

	case "yaml":
		b, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err

	case "markdown":
		return ui.PrintMarkdown(translationMarkdown(out))

	case "text":
		pairs := [][2]string{
			{"root", out.Root},
			{"table", out.Table},
			{"distinct", fmt.Sprint(out.Distinct)},
		}
		for _, j := range out.Joins {
			pairs = append(pairs, [2]string{"join", fmt.Sprintf("%s AS %s ON %s", j.Table, j.Alias, j.On)})
		}
		pairs = append(pairs, [2]string{"predicate", out.Tree})
		if out.SQL != "" {
			pairs = append(pairs, [2]string{"sql", out.SQL}, [2]string{"args", strings.Join(out.Args, ", ")})
		}
		ui.PrintKV(pairs)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func translationMarkdown(out translationOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", out.Root)
	fmt.Fprintf(&sb, "Table `%s`, distinct: **%t**\n\n", out.Table, out.Distinct)
	if len(out.Joins) > 0 {
		sb.WriteString("| Path | Table | Alias | On |\n|---|---|---|---|\n")
		for _, j := range out.Joins {
			fmt.Fprintf(&sb, "| %s | %s | %s | `%s` |\n", j.Path, j.Table, j.Alias, j.On)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "## Predicate\n\n```\n%s\n```\n", out.Tree)
	if out.SQL != "" {
		fmt.Fprintf(&sb, "\n## SQL\n\n```sql\n%s\n```\n\nArgs: %s\n", out.SQL, strings.Join(out.Args, ", "))
	}
	return sb.String()
}
