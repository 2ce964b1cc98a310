package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/dagucloud/licensor/internal/build"
)

// ConfigLoader reads and merges configuration from various sources.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	envFile    string
	configDir  string
	dataDir    string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithEnvFile loads environment variables from a dotenv file before the
// environment is bound. Variables already set in the process win.
func WithEnvFile(envFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.envFile = envFile
	}
}

// WithBaseDirs overrides the XDG config and data directories.
func WithBaseDirs(configDir, dataDir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configDir = configDir
		l.dataDir = dataDir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load reads the configuration file, applies defaults and environment
// overrides, and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %q: %w", l.envFile, err)
		}
	}

	configDir := l.configDir
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, build.Slug)
	}
	dataDir := l.dataDir
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, build.Slug)
	}

	l.configureViper(configDir, l.configFile)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues(dataDir)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, err
	}

	if used := l.v.ConfigFileUsed(); used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			used = abs
		}
		if _, err := os.Stat(used); err == nil {
			cfg.Paths.ConfigFileUsed = used
		}
	}
	cfg.Warnings = l.warnings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := &Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: strings.ToLower(strings.TrimSpace(def.LogFormat)),
		},
		License: LicenseConfig{
			Keyring:         def.Keyring == nil || *def.Keyring,
			SyncTTL:         def.SyncTTL,
			SyncTimeout:     def.SyncTimeout,
			RegisterRetries: def.RegisterRetries,
			RequestTimeout:  def.RequestTimeout,
		},
		Product: ProductConfig{
			StoreID:            def.Store.ID,
			StoreName:          def.Store.Name,
			Domains:            parseStringList(def.Store.Domains),
			ID:                 def.Product.ID,
			Name:               def.Product.Name,
			PublicKey:          strings.TrimSpace(def.Product.PublicKey),
			VariantID:          def.Product.Variant.ID,
			VariantDescription: def.Product.Variant.Description,
			Version:            def.Product.Version,
			ReleaseDate:        def.Product.ReleaseDate,
		},
	}

	var err error
	if cfg.Paths.DataDir, err = resolvePath("data directory", def.DataDir); err != nil {
		return nil, err
	}
	if cfg.Paths.LicenseFile, err = resolvePath("license file", def.LicenseFile); err != nil {
		return nil, err
	}
	if cfg.Paths.AgreementTextFile, err = resolvePath("agreement text file", def.Agreement.TextFile); err != nil {
		return nil, err
	}
	if cfg.Paths.AgreementHTMLFile, err = resolvePath("agreement HTML file", def.Agreement.HTMLFile); err != nil {
		return nil, err
	}

	if def.Proxy != nil && def.Proxy.Host != "" {
		cfg.Proxy = &ProxyConfig{
			Type:     def.Proxy.Type,
			Host:     def.Proxy.Host,
			Port:     def.Proxy.Port,
			User:     def.Proxy.User,
			Password: def.Proxy.Password,
		}
		if def.Proxy.Password != "" && l.v.InConfig("proxy.password") {
			l.warnings = append(l.warnings, "Proxy password is stored in the config file; prefer LICENSOR_PROXY_PASSWORD")
		}
	}

	if cfg.Product.PublicKey == "" && cfg.Product.Name != "" {
		l.warnings = append(l.warnings, fmt.Sprintf("Product %q has no public key; licenses cannot be verified", cfg.Product.Name))
	}

	return cfg, nil
}

func (l *ConfigLoader) setViperDefaultValues(dataDir string) {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("data_dir", dataDir)
	l.v.SetDefault("keyring", true)
	l.v.SetDefault("sync_ttl", "6h")
	l.v.SetDefault("sync_timeout", "1m")
	l.v.SetDefault("register_retries", 2)
	l.v.SetDefault("request_timeout", "30s")
	l.v.SetDefault("proxy.type", "http")
}

type envBinding struct {
	key    string
	env    string
	isPath bool
}

var envBindings = []envBinding{
	// Core
	{key: "debug", env: "DEBUG"},
	{key: "log_format", env: "LOG_FORMAT"},
	{key: "data_dir", env: "DATA_DIR", isPath: true},

	// License
	{key: "license_file", env: "LICENSE_FILE", isPath: true},
	{key: "keyring", env: "KEYRING"},
	{key: "sync_ttl", env: "SYNC_TTL"},
	{key: "sync_timeout", env: "SYNC_TIMEOUT"},
	{key: "register_retries", env: "REGISTER_RETRIES"},
	{key: "request_timeout", env: "REQUEST_TIMEOUT"},

	// Store and product
	{key: "store.id", env: "STORE_ID"},
	{key: "store.name", env: "STORE_NAME"},
	{key: "store.domains", env: "STORE_DOMAINS"},
	{key: "product.id", env: "PRODUCT_ID"},
	{key: "product.name", env: "PRODUCT_NAME"},
	{key: "product.public_key", env: "PRODUCT_PUBLIC_KEY"},
	{key: "product.variant.id", env: "PRODUCT_VARIANT_ID"},
	{key: "product.variant.description", env: "PRODUCT_VARIANT"},
	{key: "product.version", env: "PRODUCT_VERSION"},
	{key: "product.release_date", env: "PRODUCT_RELEASE_DATE"},

	// Proxy
	{key: "proxy.type", env: "PROXY_TYPE"},
	{key: "proxy.host", env: "PROXY_HOST"},
	{key: "proxy.port", env: "PROXY_PORT"},
	{key: "proxy.user", env: "PROXY_USER"},
	{key: "proxy.password", env: "PROXY_PASSWORD"},

	// Agreement
	{key: "agreement.text_file", env: "AGREEMENT_TEXT_FILE", isPath: true},
	{key: "agreement.html_file", env: "AGREEMENT_HTML_FILE", isPath: true},
}

func envPrefix() string {
	return strings.ToUpper(build.Slug)
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := envPrefix() + "_"

	for _, b := range envBindings {
		fullEnv := prefix + b.env

		if b.isPath {
			if val := os.Getenv(fullEnv); val != "" {
				if abs, err := filepath.Abs(val); err == nil && abs != val {
					_ = os.Setenv(fullEnv, abs)
				}
			}
		}

		_ = l.v.BindEnv(b.key, fullEnv)
	}
}

func (l *ConfigLoader) configureViper(configDir, configFile string) {
	if configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(envPrefix())
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	l.v.AutomaticEnv()
}

// resolvePath expands a leading ~ and makes the path absolute. Empty paths
// are returned as-is.
func resolvePath(fieldName, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s path %q: %w", fieldName, value, err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s path %q: %w", fieldName, value, err)
	}
	return abs, nil
}

// parseStringList trims entries and drops empty and duplicate ones. A single
// entry may still hold a comma-separated list when it came from a flag.
func parseStringList(input []string) []string {
	items := lo.FlatMap(input, func(item string, _ int) []string {
		return strings.Split(item, ",")
	})
	return lo.Uniq(lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
}
