package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dagucloud/licensor/internal/build"
	"github.com/dagucloud/licensor/internal/cmn/config"
	"github.com/dagucloud/licensor/internal/cmn/logger"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
	"github.com/dagucloud/licensor/internal/license"
	"github.com/dagucloud/licensor/internal/persis/filelicense"
	"github.com/dagucloud/licensor/internal/persis/filesynccache"
	"github.com/dagucloud/licensor/internal/persis/keyringlicense"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
	// Licenses holds the managers created for this command.
	Licenses *license.Registry
	// Manager manages the license of the configured product.
	Manager *license.Manager
}

// hardwareProvider returns the fingerprint source licenses are bound to.
var hardwareProvider = func(cfg *config.Config) license.HardwareIDProvider {
	return &license.HostHardwareID{FallbackDir: cfg.Paths.DataDir}
}

// NewContext initializes the application setup by loading configuration,
// setting up logger context, and building the license manager.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	v := viper.New()
	if err := bindFlags(v, cmd, flags...); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(envFile))
	}

	cfg, err := config.NewConfigLoader(v, loaderOpts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var opts []logger.Option
	if cfg.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.Core.LogFormat))
	}
	ctx = logger.WithLogger(ctx, logger.New(opts...))

	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}
	if cfg.Paths.ConfigFileUsed != "" {
		logger.Debug(ctx, "Configuration loaded", tag.Config(cfg.Paths.ConfigFileUsed))
	}

	product, err := cfg.LicenseProduct()
	if err != nil {
		return nil, err
	}
	licenses := license.NewRegistry(func(p license.Product) (*license.Manager, error) {
		return newManager(ctx, cfg, p)
	})
	mgr, err := licenses.Manager(product)
	if err != nil {
		return nil, err
	}

	return &Context{
		Context:  ctx,
		Command:  cmd,
		Flags:    flags,
		Config:   cfg,
		Quiet:    quiet,
		Licenses: licenses,
		Manager:  mgr,
	}, nil
}

// newManager wires the license manager of the configured product: the OS
// keyring backed by a license file, the persisted sync cache, and the
// license server client.
func newManager(ctx context.Context, cfg *config.Config, product license.Product) (*license.Manager, error) {
	log := logger.FromContext(ctx)

	var native license.Backend
	if cfg.License.Keyring {
		native = keyringlicense.New(build.Slug)
	}
	store := license.NewDualStore(native, filelicense.New(cfg.Paths.DataDir), log)

	cache, err := filesynccache.New(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sync cache: %w", err)
	}

	mcfg := cfg.ManagerConfig()
	mcfg.Hardware = hardwareProvider(cfg)
	mcfg.CacheStore = cache

	remote := license.NewServerClient(product.Store,
		license.WithClientTimeout(cfg.License.RequestTimeout),
		license.WithClientLogger(log),
	)

	mgr, err := license.NewManager(mcfg, product, license.Components{
		Store:  store,
		Remote: remote,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize license manager: %w", err)
	}

	proxy, err := cfg.LicenseProxy()
	if err != nil {
		return nil, err
	}
	mgr.SetProxy(proxy)

	if path := cfg.Paths.LicenseFile; path != "" {
		if !mgr.SetLicenseFilePath(path) {
			return nil, fmt.Errorf("license file %q cannot be used", path)
		}
	}

	text, html, err := cfg.LicenseAgreement()
	if err != nil {
		logger.Warn(ctx, "License agreement unavailable", tag.Error(err))
	}
	mgr.SetLicenseAgreementText(text)
	mgr.SetLicenseAgreementHTML(html)

	return mgr, nil
}

// StringParam returns the value of a string flag.
func (c *Context) StringParam(name string) (string, error) {
	val, err := c.Command.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return val, nil
}

// BoolParam returns the value of a boolean flag.
func (c *Context) BoolParam(name string) (bool, error) {
	val, err := c.Command.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return val, nil
}

// Out is where command results are written.
func (c *Context) Out() io.Writer {
	return c.Command.OutOrStdout()
}

// ColorEnabled reports whether results are written to a terminal.
func (c *Context) ColorEnabled() bool {
	f, ok := c.Out().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewCommand wires runFunc into cmd. The Context is created before runFunc
// and background license syncs are awaited after it returns.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(ctx *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		defer ctx.Licenses.Wait()

		if err := runFunc(ctx, args); err != nil {
			logger.Debug(ctx, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}

	return cmd
}
