package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/service"
	"github.com/satishbabariya/celquery/internal/ui"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(opts *Options) *cobra.Command {
	var (
		orders []string
		take   int
		skip   int
		count  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "query <entity> [expression]",
		Short: "Run a filter against the database",
		Example: `  celquery query content 'status == "DRAFT"' --order rating:desc --take 10
  celquery query content --count`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			expr := ""
			if len(args) == 2 {
				expr = args[1]
			}

			c, err := opts.container(ctx)
			if err != nil {
				return err
			}
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Close(ctx)

			svc, err := c.Services().Get(args[0])
			if err != nil {
				return err
			}

			if count {
				n, err := svc.Count(ctx, expr)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}

			var qopts []service.QueryOption
			for _, o := range orders {
				opt, err := service.ParseOrder(o)
				if err != nil {
					return err
				}
				qopts = append(qopts, opt)
			}
			if cmd.Flags().Changed("take") {
				qopts = append(qopts, service.WithTake(take))
			}
			if cmd.Flags().Changed("skip") {
				qopts = append(qopts, service.WithSkip(skip))
			}

			var rows []domain.Row
			if expr == "" {
				rows, err = svc.FindAll(ctx, qopts...)
			} else {
				rows, err = svc.Filter(ctx, expr, qopts...)
			}
			if err != nil {
				return err
			}
			return printRows(cmd, rows, output)
		},
	}

	cmd.Flags().StringArrayVar(&orders, "order", nil, "sort by field[:asc|desc], repeatable")
	cmd.Flags().IntVar(&take, "take", 0, "maximum number of rows")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of rows to skip")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matching rows")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

func printRows(cmd *cobra.Command, rows []domain.Row, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)

	case "table":
		if len(rows) == 0 {
			ui.PrintInfo("no rows")
			return nil
		}
		columns := make([]string, 0, len(rows[0]))
		for col := range rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)

		data := make([][]string, len(rows))
		for i, row := range rows {
			data[i] = make([]string, len(columns))
			for j, col := range columns {
				data[i][j] = cell(row[col])
			}
		}
		return ui.PrintTable(columns, data)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
