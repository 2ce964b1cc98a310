package license

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTampered is returned when a license blob is corrupt, carries a bad
// signature or lacks a structural field.
var ErrTampered = errors.New("license verification failed")

// SignatureVerifier turns an encoded license into trusted claims.
type SignatureVerifier interface {
	Verify(publicKey ed25519.PublicKey, encoded string) (*LicenseClaims, error)
}

// JWTVerifier verifies EdDSA signed JWT licenses.
type JWTVerifier struct{}

var _ SignatureVerifier = JWTVerifier{}

// Verify checks the signature and the structural fields of the license.
// Expiry is deliberately not enforced here; Evaluate owns date semantics.
func (JWTVerifier) Verify(publicKey ed25519.PublicKey, encoded string) (*LicenseClaims, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty license", ErrTampered)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: invalid public key", ErrTampered)
	}

	claims := &LicenseClaims{}
	token, err := jwt.ParseWithClaims(encoded, claims, func(_ *jwt.Token) (any, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTampered, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrTampered)
	}

	var missing []string
	if strings.TrimSpace(claims.HardwareID) == "" {
		missing = append(missing, "hwid")
	}
	if strings.TrimSpace(claims.StoreName) == "" {
		missing = append(missing, "store_name")
	}
	if strings.TrimSpace(claims.ProductName) == "" {
		missing = append(missing, "product_name")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrTampered, strings.Join(missing, ", "))
	}
	return claims, nil
}
