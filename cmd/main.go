package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dagucloud/licensor/internal/build"
	"github.com/dagucloud/licensor/internal/cmd"
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "Licensor validates and manages product licenses",
	Long: `Licensor validates and manages the license of a product.

Licenses are signed by the vendor, bound to the hardware of this computer and
stored in the OS credential store with a file fallback. Validation works
offline and is reconciled with the vendor's license server periodically.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Status())
	rootCmd.AddCommand(cmd.Validate())
	rootCmd.AddCommand(cmd.Assign())
	rootCmd.AddCommand(cmd.Trial())
	rootCmd.AddCommand(cmd.Remove())
	rootCmd.AddCommand(cmd.Path())
	rootCmd.AddCommand(cmd.Version())

	build.Version = version
}

var version = "0.0.0"
