package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func Remove() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "remove [flags]",
			Short: "Remove the installed license",
			Long: `Delete the license of the product from the OS credential store and the
license file. Removing a license that is not installed succeeds.
`,
			Args: cobra.NoArgs,
		}, nil, runRemove,
	)
}

func runRemove(ctx *Context, _ []string) error {
	if err := ctx.Manager.DeleteLicense(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Out(), "License for %s removed\n", ctx.Manager.Product().Name)
	return nil
}
