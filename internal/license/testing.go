package license

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestHardwareID is the hardware ID bound into licenses issued by TestIssuer.
const TestHardwareID = "test-hwid"

// TestIssuer signs licenses with an ephemeral key for use in tests.
type TestIssuer struct {
	Product    Product
	PrivateKey ed25519.PrivateKey
}

// NewTestIssuer creates a product "Licensor Test 1.0" sold by store "Test
// Store" whose licenses are signed with a freshly generated key pair.
func NewTestIssuer(domains ...string) *TestIssuer {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic("ed25519.GenerateKey: " + err.Error())
	}
	if len(domains) == 0 {
		domains = []string{"license.example.com"}
	}
	store, err := NewStore(1, "Test Store", domains...)
	if err != nil {
		panic(err)
	}
	version, err := NewVersion("1.0", "2025-01-01")
	if err != nil {
		panic(err)
	}
	product, err := NewProduct(42, "Licensor Test", EncodePublicKey(pub), Variant{}, version, store)
	if err != nil {
		panic(err)
	}
	return &TestIssuer{Product: product, PrivateKey: priv}
}

// Claims returns complete claims of a perpetual, non-trial license for the
// issuer's product bound to TestHardwareID.
func (i *TestIssuer) Claims() *LicenseClaims {
	now := time.Now()
	return &LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   i.Product.Store.Name,
			Subject:  "test-license",
		},
		ClaimsVersion:      ClaimsVersion,
		Email:              "jane@example.com",
		FirstName:          "Jane",
		LastName:           "Doe",
		SerialKey:          "SERIAL-0001",
		StoreID:            i.Product.Store.ID,
		StoreName:          i.Product.Store.Name,
		ProductID:          i.Product.ID,
		ProductName:        i.Product.Name,
		Version:            i.Product.Version.ID,
		VersionReleaseDate: i.Product.Version.FormattedReleaseDate(),
		HardwareID:         TestHardwareID,
	}
}

// Sign encodes claims as an EdDSA signed license.
func (i *TestIssuer) Sign(claims *LicenseClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.PrivateKey)
	if err != nil {
		panic("jwt sign: " + err.Error())
	}
	return signed
}

// Issue signs the default claims after applying the given modifications.
func (i *TestIssuer) Issue(modify ...func(c *LicenseClaims)) string {
	claims := i.Claims()
	for _, fn := range modify {
		fn(claims)
	}
	return i.Sign(claims)
}
