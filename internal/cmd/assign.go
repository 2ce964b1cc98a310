package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dagucloud/licensor/internal/license"
)

func Assign() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "assign [flags]",
			Short: "Assign a purchased license to this computer",
			Long: `Register a purchased license with the license server and install it.

The license server binds the license to the hardware fingerprint of this
computer. Computers without network access can install a license file
obtained from the vendor instead.

Example:
  licensor assign --email jane@example.com --serial ABCD-1234-EFGH-5678
  licensor assign --file ./widget.license
`,
			Args: cobra.NoArgs,
		}, assignFlags, runAssign,
	)
}

var assignFlags = []commandLineFlag{emailFlag, serialFlag, licenseFileFlag}

func runAssign(ctx *Context, _ []string) error {
	email, err := ctx.StringParam("email")
	if err != nil {
		return err
	}
	serial, err := ctx.StringParam("serial")
	if err != nil {
		return err
	}
	file, err := ctx.StringParam("file")
	if err != nil {
		return err
	}

	var lic *license.License
	switch {
	case file != "" && (email != "" || serial != ""):
		return errors.New("--file cannot be combined with --email or --serial")
	case file != "":
		lic, err = ctx.Manager.AssignLicenseFile(ctx, file)
	case strings.TrimSpace(email) == "" || strings.TrimSpace(serial) == "":
		return errors.New("--email and --serial are required unless --file is given")
	default:
		lic, err = ctx.Manager.AssignLicense(ctx, email, serial)
	}
	if err != nil {
		return err
	}

	printAssigned(ctx, lic)
	return nil
}

func printAssigned(ctx *Context, lic *license.License) {
	kind := "License"
	if lic.IsTrial() {
		kind = "Trial license"
	}
	c := lic.Claims
	who := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if who == "" {
		who = c.Email
	} else if c.Email != "" {
		who += " <" + c.Email + ">"
	}

	msg := fmt.Sprintf("%s for %s assigned to %s", kind, ctx.Manager.ProductDescription(ctx), who)
	if ctx.ColorEnabled() {
		msg = color.GreenString(msg)
	}
	_, _ = fmt.Fprintln(ctx.Out(), msg)
	if exp := c.Expiration(); exp != nil {
		_, _ = fmt.Fprintf(ctx.Out(), "Expires on %s\n", exp.Format(license.ReleaseDateLayout))
	}
}
