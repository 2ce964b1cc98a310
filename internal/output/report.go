package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/dagucloud/licensor/internal/license"
)

// Report is the printable state of one product's license.
type Report struct {
	Product string         `yaml:"product"`
	Result  string         `yaml:"result"`
	Code    int            `yaml:"code"`
	Detail  string         `yaml:"detail,omitempty"`
	License *LicenseReport `yaml:"license,omitempty"`
	File    string         `yaml:"file,omitempty"`
	Sync    SyncReport     `yaml:"sync"`

	result license.Result
}

// LicenseReport holds the displayable claims of the installed license.
type LicenseReport struct {
	Licensee    string     `yaml:"licensee"`
	Email       string     `yaml:"email"`
	Serial      string     `yaml:"serial,omitempty"`
	Trial       bool       `yaml:"trial"`
	Variant     string     `yaml:"variant,omitempty"`
	Version     string     `yaml:"version,omitempty"`
	IssuedAt    *time.Time `yaml:"issuedAt,omitempty"`
	Expires     *time.Time `yaml:"expires,omitempty"`
	SupportEnds *time.Time `yaml:"supportEnds,omitempty"`
}

// SyncReport tells when the license was last checked.
type SyncReport struct {
	VerdictAt      *time.Time `yaml:"verdictAt,omitempty"`
	LastRemoteSync *time.Time `yaml:"lastRemoteSync,omitempty"`
}

// NewReport assembles a report. lic may be nil when no license is installed.
func NewReport(product string, v license.Verdict, lic *license.License, last license.CachedResult, file string) Report {
	r := Report{
		Product: product,
		Result:  v.Result.String(),
		Code:    v.Result.Code(),
		Detail:  v.Detail,
		File:    file,
		Sync: SyncReport{
			VerdictAt:      timePtr(last.VerdictAt),
			LastRemoteSync: timePtr(last.LastRemoteSync),
		},
		result: v.Result,
	}
	if lic != nil && lic.Claims != nil {
		c := lic.Claims
		r.License = &LicenseReport{
			Licensee:    strings.TrimSpace(c.FirstName + " " + c.LastName),
			Email:       c.Email,
			Serial:      MaskSerial(c.SerialKey),
			Trial:       c.IsTrial(),
			Variant:     c.VariantDescription,
			Version:     c.Version,
			Expires:     c.Expiration(),
			SupportEnds: c.SupportEndDate(),
		}
		if c.IssuedAt != nil {
			r.License.IssuedAt = timePtr(c.IssuedAt.Time)
		}
	}
	return r
}

// Valid reports whether the license grants use of the product.
func (r Report) Valid() bool { return r.result.IsValid() }

// YAML renders the report as a YAML document.
func (r Report) YAML() (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

// MaskSerial keeps the first and last four characters of a serial key.
func MaskSerial(serial string) string {
	serial = strings.TrimSpace(serial)
	if len(serial) <= 8 {
		return serial
	}
	return serial[:4] + strings.Repeat("*", len(serial)-8) + serial[len(serial)-4:]
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
