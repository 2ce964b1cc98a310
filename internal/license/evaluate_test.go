package license

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse(ReleaseDateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := date("2024-06-01")
	version := Version{ID: "1.0", ReleaseDate: date("2024-01-01")}

	base := func() *LicenseClaims {
		return &LicenseClaims{
			Email:       "jane@example.com",
			FirstName:   "Jane",
			LastName:    "Doe",
			SerialKey:   "SERIAL",
			StoreName:   "Acme",
			ProductName: "Widget",
			HardwareID:  "hw-1",
		}
	}

	cases := []struct {
		name   string
		modify func(c *LicenseClaims)
		hwid   string
		want   Result
	}{
		{
			name: "complete perpetual license is valid",
			hwid: "hw-1",
			want: ResultValid,
		},
		{
			name:   "blank e-mail is incomplete",
			modify: func(c *LicenseClaims) { c.Email = " " },
			hwid:   "hw-1",
			want:   ResultIncomplete,
		},
		{
			name:   "blank last name is incomplete",
			modify: func(c *LicenseClaims) { c.LastName = "" },
			hwid:   "hw-1",
			want:   ResultIncomplete,
		},
		{
			name: "incomplete wins over every other rule",
			modify: func(c *LicenseClaims) {
				c.FirstName = ""
				c.ExpiresAt = jwt.NewNumericDate(date("2020-01-01"))
			},
			hwid: "other",
			want: ResultIncomplete,
		},
		{
			name: "hardware mismatch is checked before dates",
			modify: func(c *LicenseClaims) {
				c.ExpiresAt = jwt.NewNumericDate(date("2020-01-01"))
			},
			hwid: "hw-2",
			want: ResultUnknownHost,
		},
		{
			name: "expired trial",
			modify: func(c *LicenseClaims) {
				c.SerialKey = ""
				c.ExpiresAt = jwt.NewNumericDate(date("2024-05-01"))
			},
			hwid: "hw-1",
			want: ResultTrialExpired,
		},
		{
			name: "expired license",
			modify: func(c *LicenseClaims) {
				c.ExpiresAt = jwt.NewNumericDate(date("2024-05-01"))
			},
			hwid: "hw-1",
			want: ResultExpired,
		},
		{
			name: "running trial is valid",
			modify: func(c *LicenseClaims) {
				c.SerialKey = ""
				c.ExpiresAt = jwt.NewNumericDate(date("2024-07-01"))
			},
			hwid: "hw-1",
			want: ResultValid,
		},
		{
			name: "release after support end",
			modify: func(c *LicenseClaims) {
				c.SupportEnd = jwt.NewNumericDate(date("2023-12-31"))
			},
			hwid: "hw-1",
			want: ResultSupportEnded,
		},
		{
			name: "release on support end day is covered",
			modify: func(c *LicenseClaims) {
				c.SupportEnd = jwt.NewNumericDate(date("2024-01-01"))
			},
			hwid: "hw-1",
			want: ResultValid,
		},
		{
			name: "expiry is checked before support end",
			modify: func(c *LicenseClaims) {
				c.ExpiresAt = jwt.NewNumericDate(date("2024-05-01"))
				c.SupportEnd = jwt.NewNumericDate(date("2023-12-31"))
			},
			hwid: "hw-1",
			want: ResultExpired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			claims := base()
			if tc.modify != nil {
				tc.modify(claims)
			}
			got := Evaluate(claims, now, tc.hwid, version)
			assert.Equal(t, tc.want, got.Result, got.String())
		})
	}

	t.Run("nil claims are invalid", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, ResultInvalid, Evaluate(nil, now, "hw-1", version).Result)
	})

	t.Run("never produces a server only result", func(t *testing.T) {
		t.Parallel()

		for _, tc := range cases {
			claims := base()
			if tc.modify != nil {
				tc.modify(claims)
			}
			assert.False(t, Evaluate(claims, now, tc.hwid, version).Result.IsRemoteOnly(), tc.name)
		}
	})
}
