package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dagucloud/licensor/internal/cmn/logger"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
	"github.com/dagucloud/licensor/internal/license"
)

func Validate() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "validate [flags]",
			Short: "Validate the license and exit non-zero unless it is valid",
			Long: `Validate the installed license of the product.

Without --sync only the offline checks run. With --sync the license server is
asked for its verdict when the last reconciliation is older than the sync TTL,
and the command waits for the answer. A verdict from the server replaces the
offline one when they differ.

Exit status is 0 when the license is valid and 1 otherwise.

Example:
  licensor validate
  licensor validate --sync
`,
			Args: cobra.NoArgs,
		}, validateFlags, runValidate,
	)
}

var validateFlags = []commandLineFlag{syncFlag}

// errLicenseNotValid makes the command exit with a failure status.
type errLicenseNotValid struct {
	verdict license.Verdict
}

func (e *errLicenseNotValid) Error() string {
	return fmt.Sprintf("license is not valid: %s", e.verdict)
}

func runValidate(ctx *Context, _ []string) error {
	withServer, err := ctx.BoolParam("sync")
	if err != nil {
		return err
	}

	var v license.Verdict
	if withServer {
		v = validateWithServer(ctx)
	} else {
		v = ctx.Manager.Validate(ctx)
	}

	_, _ = fmt.Fprintln(ctx.Out(), newRenderer(ctx).RenderVerdict(buildReport(ctx, v)))

	if !v.Result.IsValid() {
		return &errLicenseNotValid{verdict: v}
	}
	return nil
}

// validateWithServer returns the server verdict when it differs from the
// offline one, otherwise the offline verdict.
func validateWithServer(ctx *Context) license.Verdict {
	var (
		mu       sync.Mutex
		server   license.Verdict
		received bool
	)
	offline := ctx.Manager.ValidateAsync(ctx, license.ValidationActionFunc(func(v license.Verdict) {
		mu.Lock()
		defer mu.Unlock()
		server, received = v, true
	}))
	ctx.Manager.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !received {
		logger.Debug(ctx, "Offline verdict confirmed", tag.Result(offline.Result.String()))
		return offline
	}
	logger.Info(ctx, "License server changed the verdict",
		tag.Offline(offline.Result.String()),
		tag.Result(server.Result.String()),
	)
	return server
}
