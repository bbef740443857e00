package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/celquery/internal/ui"
	"github.com/satishbabariya/celquery/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(opts *Options) *cobra.Command {
	var (
		check  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(info); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			}

			if !check {
				return nil
			}
			required := opts.Config().RequiredVersion
			if err := version.Check(info.Version, required); err != nil {
				return err
			}
			if required != "" {
				ui.PrintSuccess("satisfies required version %s", required)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "fail unless the version satisfies required_version")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
