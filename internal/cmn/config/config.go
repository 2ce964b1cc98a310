package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dagucloud/licensor/internal/license"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core     Core
	Paths    PathsConfig
	License  LicenseConfig
	Product  ProductConfig
	Proxy    *ProxyConfig
	Warnings []string
}

// Core holds the settings shared by every command.
type Core struct {
	// Debug enables debug logging.
	Debug bool
	// LogFormat is "text" or "json".
	LogFormat string
}

// PathsConfig holds the filesystem locations used by the application.
type PathsConfig struct {
	ConfigFileUsed string
	DataDir        string
	// LicenseFile is empty unless the license file was moved.
	LicenseFile string
	// AgreementTextFile and AgreementHTMLFile hold the license agreement.
	AgreementTextFile string
	AgreementHTMLFile string
}

// LicenseConfig tunes the license manager.
type LicenseConfig struct {
	Keyring         bool
	SyncTTL         time.Duration
	SyncTimeout     time.Duration
	RegisterRetries int
	RequestTimeout  time.Duration
}

// ProductConfig describes the licensed product and its vendor.
type ProductConfig struct {
	StoreID            int64
	StoreName          string
	Domains            []string
	ID                 int64
	Name               string
	PublicKey          string
	VariantID          int64
	VariantDescription string
	Version            string
	ReleaseDate        string
}

// ProxyConfig routes license server requests through a proxy.
type ProxyConfig struct {
	Type     string
	Host     string
	Port     int
	User     string
	Password string
}

var validLogFormats = []string{"text", "json"}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(validLogFormats, c.Core.LogFormat) {
		return fmt.Errorf("invalid log format: %q (must be one of %s)", c.Core.LogFormat, strings.Join(validLogFormats, ", "))
	}
	if c.License.SyncTTL < 0 {
		return fmt.Errorf("invalid sync TTL: %s (must not be negative)", c.License.SyncTTL)
	}
	if c.License.SyncTimeout < 0 {
		return fmt.Errorf("invalid sync timeout: %s (must not be negative)", c.License.SyncTimeout)
	}
	if c.License.RequestTimeout < 0 {
		return fmt.Errorf("invalid request timeout: %s (must not be negative)", c.License.RequestTimeout)
	}
	if c.Proxy != nil {
		if _, err := c.LicenseProxy(); err != nil {
			return err
		}
	}
	return nil
}

// ErrProductNotConfigured is returned when no product is configured.
var ErrProductNotConfigured = errors.New("product is not configured")

// LicenseProduct builds the product the manager validates licenses for.
func (c *Config) LicenseProduct() (license.Product, error) {
	p := c.Product
	if p.Name == "" && p.PublicKey == "" {
		return license.Product{}, ErrProductNotConfigured
	}
	store, err := license.NewStore(p.StoreID, p.StoreName, p.Domains...)
	if err != nil {
		return license.Product{}, fmt.Errorf("invalid store: %w", err)
	}
	variant, err := license.NewVariant(p.VariantID, p.VariantDescription)
	if err != nil {
		return license.Product{}, fmt.Errorf("invalid variant: %w", err)
	}
	version, err := license.NewVersion(p.Version, p.ReleaseDate)
	if err != nil {
		return license.Product{}, fmt.Errorf("invalid version: %w", err)
	}
	product, err := license.NewProduct(p.ID, p.Name, p.PublicKey, variant, version, store)
	if err != nil {
		return license.Product{}, fmt.Errorf("invalid product: %w", err)
	}
	return product, nil
}

// LicenseProxy returns the proxy for license server requests. The zero value
// means no proxy is configured.
func (c *Config) LicenseProxy() (license.ProxyConfig, error) {
	if c.Proxy == nil || c.Proxy.Host == "" {
		return license.ProxyConfig{}, nil
	}
	proxy, err := license.NewProxyConfig(
		license.ProxyType(strings.ToLower(c.Proxy.Type)),
		c.Proxy.Host,
		c.Proxy.Port,
		c.Proxy.User,
		[]byte(c.Proxy.Password),
	)
	if err != nil {
		return license.ProxyConfig{}, fmt.Errorf("invalid proxy: %w", err)
	}
	return proxy, nil
}

// ManagerConfig returns the manager settings derived from the configuration.
func (c *Config) ManagerConfig() license.ManagerConfig {
	return license.ManagerConfig{
		SyncTTL:         c.License.SyncTTL,
		SyncTimeout:     c.License.SyncTimeout,
		RegisterRetries: c.License.RegisterRetries,
	}
}

// LicenseAgreement reads the configured agreement files. Missing files are
// reported as warnings by the caller.
func (c *Config) LicenseAgreement() (text, html string, err error) {
	if c.Paths.AgreementTextFile != "" {
		data, readErr := os.ReadFile(c.Paths.AgreementTextFile)
		if readErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to read license agreement: %w", readErr))
		}
		text = string(data)
	}
	if c.Paths.AgreementHTMLFile != "" {
		data, readErr := os.ReadFile(c.Paths.AgreementHTMLFile)
		if readErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to read license agreement: %w", readErr))
		}
		html = string(data)
	}
	return text, html, err
}
