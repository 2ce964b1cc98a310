package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dagucloud/licensor/internal/cmn/logger"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
	"github.com/dagucloud/licensor/internal/license"
	"github.com/dagucloud/licensor/internal/output"
)

const (
	outputTree = "tree"
	outputYAML = "yaml"
)

func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status [flags]",
			Short: "Display the license status of the product",
			Long: `Show the installed license and its offline verdict.

The verdict is computed locally from the signed license, the hardware
fingerprint of this computer and the product version. The license server is
not contacted; use "validate --sync" for that.

Example:
  licensor status
  licensor status -o yaml
`,
			Args: cobra.NoArgs,
		}, statusFlags, runStatus,
	)
}

var statusFlags = []commandLineFlag{outputFlag, agreementFlag}

func runStatus(ctx *Context, _ []string) error {
	format, err := ctx.StringParam("output")
	if err != nil {
		return err
	}
	if format != outputTree && format != outputYAML {
		return fmt.Errorf("unsupported output format %q", format)
	}
	showAgreement, err := ctx.BoolParam("agreement")
	if err != nil {
		return err
	}

	report := buildReport(ctx, ctx.Manager.Validate(ctx))

	if format == outputYAML {
		doc, err := report.YAML()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(ctx.Out(), doc)
	} else {
		_, _ = fmt.Fprint(ctx.Out(), newRenderer(ctx).RenderStatus(report))
	}

	if showAgreement {
		if agreement := ctx.Manager.LicenseAgreement(); agreement != "" {
			_, _ = fmt.Fprintf(ctx.Out(), "\n%s\n", agreement)
		}
	}
	return nil
}

func buildReport(ctx *Context, v license.Verdict) output.Report {
	m := ctx.Manager
	lic, err := m.License(ctx)
	if err != nil && !errors.Is(err, license.ErrTampered) {
		logger.Warn(ctx, "Failed to read license", tag.Error(err))
	}
	return output.NewReport(m.ProductDescription(ctx), v, lic, m.LastResult(), m.LicenseFilePath())
}

func newRenderer(ctx *Context) *output.Renderer {
	cfg := output.DefaultConfig()
	cfg.ColorEnabled = ctx.ColorEnabled()
	return output.NewRenderer(cfg)
}
