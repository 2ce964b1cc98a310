package license

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tamperToken flips one character in the payload so the structure stays
// intact but the signature no longer matches.
func tamperToken(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3, "expected JWT to have 3 parts")

	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}

func TestJWTVerifier_Verify(t *testing.T) {
	t.Parallel()

	t.Run("valid license returns its claims", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		encoded := issuer.Issue()

		claims, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, encoded)

		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", claims.Email)
		assert.Equal(t, TestHardwareID, claims.HardwareID)
		assert.Equal(t, issuer.Product.ID, claims.ProductID)
		assert.False(t, claims.IsTrial())
	})

	t.Run("expired license still verifies", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		encoded := issuer.Issue(func(c *LicenseClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-48 * time.Hour))
		})

		claims, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, encoded)

		require.NoError(t, err)
		require.NotNil(t, claims.Expiration())
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		_, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, "\n "+issuer.Issue()+"\n")
		require.NoError(t, err)
	})

	t.Run("modified payload is tampered", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		_, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, tamperToken(t, issuer.Issue()))
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("license signed with another key is tampered", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		other := NewTestIssuer()
		_, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, other.Issue())
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("HMAC signed license is rejected", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, issuer.Claims()).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = JWTVerifier{}.Verify(issuer.Product.PublicKey, token)
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("garbage and empty input are tampered", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		for _, encoded := range []string{"", "   ", "not-a-license", "a.b.c"} {
			_, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, encoded)
			assert.ErrorIs(t, err, ErrTampered, encoded)
		}
	})

	t.Run("missing structural fields are tampered", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		mods := map[string]func(c *LicenseClaims){
			"hwid":         func(c *LicenseClaims) { c.HardwareID = "" },
			"store_name":   func(c *LicenseClaims) { c.StoreName = " " },
			"product_name": func(c *LicenseClaims) { c.ProductName = "" },
		}
		for field, mod := range mods {
			_, err := JWTVerifier{}.Verify(issuer.Product.PublicKey, issuer.Issue(mod))
			require.ErrorIs(t, err, ErrTampered, field)
			assert.Contains(t, err.Error(), field)
		}
	})

	t.Run("invalid public key is tampered", func(t *testing.T) {
		t.Parallel()

		issuer := NewTestIssuer()
		_, err := JWTVerifier{}.Verify(ed25519.PublicKey("short"), issuer.Issue())
		assert.ErrorIs(t, err, ErrTampered)
	})
}

func TestLicenseClaims_Matches(t *testing.T) {
	t.Parallel()

	id := ProductIdentity{StoreID: 1, ProductID: 42, VariantID: 3}

	assert.True(t, (&LicenseClaims{StoreID: 1, ProductID: 42, VariantID: 3}).matches(id))
	assert.True(t, (&LicenseClaims{StoreID: 1, ProductID: 42}).matches(id), "license without variant fits every variant")
	assert.False(t, (&LicenseClaims{StoreID: 1, ProductID: 42, VariantID: 4}).matches(id))
	assert.False(t, (&LicenseClaims{StoreID: 2, ProductID: 42, VariantID: 3}).matches(id))
	assert.False(t, (&LicenseClaims{StoreID: 1, ProductID: 43, VariantID: 3}).matches(id))
}
