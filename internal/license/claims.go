package license

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsVersion is the current version of the license claims layout.
const ClaimsVersion = 1

// LicenseClaims are the trusted fields of a verified license. The registered
// ExpiresAt claim holds the license expiration date; nil means perpetual.
type LicenseClaims struct {
	jwt.RegisteredClaims
	ClaimsVersion int `json:"cv"`

	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	SerialKey string `json:"serial_key,omitempty"`

	StoreID            int64  `json:"store_id"`
	StoreName          string `json:"store_name"`
	ProductID          int64  `json:"product_id"`
	ProductName        string `json:"product_name"`
	VariantID          int64  `json:"variant_id,omitempty"`
	VariantDescription string `json:"variant,omitempty"`
	Version            string `json:"version,omitempty"`
	VersionReleaseDate string `json:"version_release_date,omitempty"`

	SupportEnd *jwt.NumericDate `json:"support_end,omitempty"`
	HardwareID string           `json:"hwid"`
}

// IsTrial reports whether the license was granted without a serial key.
func (c *LicenseClaims) IsTrial() bool {
	return strings.TrimSpace(c.SerialKey) == ""
}

// Expiration returns the license expiration date, or nil for perpetual licenses.
func (c *LicenseClaims) Expiration() *time.Time {
	if c.ExpiresAt == nil {
		return nil
	}
	t := c.ExpiresAt.Time
	return &t
}

// SupportEndDate returns the support end date, or nil when support never ends.
func (c *LicenseClaims) SupportEndDate() *time.Time {
	if c.SupportEnd == nil {
		return nil
	}
	t := c.SupportEnd.Time
	return &t
}

// matches reports whether the license was issued for the given product.
// A license without a variant is accepted for any variant.
func (c *LicenseClaims) matches(id ProductIdentity) bool {
	if c.StoreID != id.StoreID || c.ProductID != id.ProductID {
		return false
	}
	return c.VariantID == 0 || c.VariantID == id.VariantID
}

// License is a verified license together with its encoded form.
type License struct {
	Claims  *LicenseClaims
	Encoded string
}

// IsTrial reports whether this is a trial license.
func (l *License) IsTrial() bool { return l.Claims.IsTrial() }

// String returns the encoded license.
func (l *License) String() string { return l.Encoded }
