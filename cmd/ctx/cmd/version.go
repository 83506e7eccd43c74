package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/pkg/version"
)

// newVersionCmd prints build info, using the global --json flag instead
// of a local one, since every other command in this tree follows that
// convention.
func newVersionCmd(app *App) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(app.Out, version.Short())
				return nil
			}
			if app.JSON {
				return app.outputJSON(version.GetInfo())
			}
			fmt.Fprintln(app.Out, version.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
