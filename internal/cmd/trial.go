package cmd

import (
	"github.com/spf13/cobra"
)

func Trial() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "trial [flags]",
			Short: "Request a trial license for this computer",
			Long: `Ask the license server for a time limited trial license and install it.

A computer can use one trial per product. Stores may disable trials entirely,
in which case the command fails with TRIALS_DISABLED.

Example:
  licensor trial --email jane@example.com --first-name Jane --last-name Doe
`,
			Args: cobra.NoArgs,
		}, trialFlags, runTrial,
	)
}

var trialFlags = []commandLineFlag{emailFlagRequired, firstNameFlag, lastNameFlag}

func runTrial(ctx *Context, _ []string) error {
	email, err := ctx.StringParam("email")
	if err != nil {
		return err
	}
	firstName, err := ctx.StringParam("first-name")
	if err != nil {
		return err
	}
	lastName, err := ctx.StringParam("last-name")
	if err != nil {
		return err
	}

	lic, err := ctx.Manager.AssignTrial(ctx, email, firstName, lastName)
	if err != nil {
		return err
	}

	printAssigned(ctx, lic)
	return nil
}
