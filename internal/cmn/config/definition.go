package config

import "time"

// Definition holds the raw configuration as read from the config file,
// environment variables and flags. Each field maps to a configuration key.
type Definition struct {
	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat defines the output format for log messages.
	// Available options: "json", "text"
	LogFormat string `mapstructure:"log_format"`

	// DataDir is where the sync cache and the generated machine ID are kept.
	DataDir string `mapstructure:"data_dir"`

	// LicenseFile moves the license file of the product. A copy of every
	// saved license is then kept there.
	LicenseFile string `mapstructure:"license_file"`

	// Keyring toggles the operating system credential store.
	Keyring *bool `mapstructure:"keyring"`

	// SyncTTL is how long a remote validation result is trusted.
	SyncTTL time.Duration `mapstructure:"sync_ttl"`

	// SyncTimeout bounds a background sync with the license server.
	SyncTimeout time.Duration `mapstructure:"sync_timeout"`

	// RegisterRetries is the number of retries of a registration request
	// after a transport failure. Negative disables retries.
	RegisterRetries int `mapstructure:"register_retries"`

	// RequestTimeout bounds one HTTP request to a license server.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Store describes the vendor and its license servers.
	Store StoreDef `mapstructure:"store"`

	// Product describes the licensed product.
	Product ProductDef `mapstructure:"product"`

	// Proxy routes license server requests through a proxy.
	Proxy *ProxyDef `mapstructure:"proxy"`

	// Agreement is the license agreement shown by the status command.
	Agreement AgreementDef `mapstructure:"agreement"`
}

// StoreDef is the vendor selling the product.
type StoreDef struct {
	ID      int64    `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	Domains []string `mapstructure:"domains"`
}

// ProductDef is the licensed product.
type ProductDef struct {
	ID          int64      `mapstructure:"id"`
	Name        string     `mapstructure:"name"`
	PublicKey   string     `mapstructure:"public_key"`
	Variant     VariantDef `mapstructure:"variant"`
	Version     string     `mapstructure:"version"`
	ReleaseDate string     `mapstructure:"release_date"`
}

// VariantDef is an edition of the product.
type VariantDef struct {
	ID          int64  `mapstructure:"id"`
	Description string `mapstructure:"description"`
}

// ProxyDef holds proxy settings.
type ProxyDef struct {
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// AgreementDef points at the license agreement documents.
type AgreementDef struct {
	TextFile string `mapstructure:"text_file"`
	HTMLFile string `mapstructure:"html_file"`
}
