package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dagucloud/licensor/internal/cmn/fileutil"
	"github.com/dagucloud/licensor/internal/cmn/logger"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
)

func Path() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "path [flags] [new-path]",
			Short: "Show or move the license file",
			Long: `Print the location of the license file.

With an argument, the path is checked for usability and the installed license,
if any, is copied there. Set "license_file" in the config file or
LICENSOR_LICENSE_FILE to keep using the new location.

Example:
  licensor path
  licensor path /etc/widget/license
`,
			Args: cobra.MaximumNArgs(1),
		}, nil, runPath,
	)
}

func runPath(ctx *Context, args []string) error {
	m := ctx.Manager

	if len(args) == 0 {
		path := m.LicenseFilePath()
		if path == "" {
			path = "license file disabled"
		}
		_, _ = fmt.Fprintln(ctx.Out(), path)
		return nil
	}

	lic, err := m.License(ctx)
	if err != nil {
		return err
	}

	target := args[0]
	if !m.SetLicenseFilePath(target) {
		return fmt.Errorf("license file %q cannot be used", target)
	}
	if lic != nil {
		if err := fileutil.WriteFileAtomic(m.LicenseFilePath(), []byte(lic.Encoded+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to copy license: %w", err)
		}
		logger.Info(ctx, "License copied", tag.Path(m.LicenseFilePath()))
	}

	_, _ = fmt.Fprintln(ctx.Out(), m.LicenseFilePath())
	return nil
}
