package license

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ReleaseDateLayout is the layout of version release dates (yyyy-MM-dd).
const ReleaseDateLayout = "2006-01-02"

// ErrInvalidArgument is returned by the value object constructors.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Store describes the vendor selling a product and the license servers it runs.
type Store struct {
	ID      int64
	Name    string
	Domains []string
}

// NewStore validates and normalizes the store details. Each domain is trimmed
// and lowercased; a domain may carry an explicit scheme such as http://host:port.
func NewStore(id int64, name string, domains ...string) (Store, error) {
	if id < 0 {
		return Store{}, invalidArg("store ID must be positive or zero, got %d", id)
	}
	if strings.TrimSpace(name) == "" {
		return Store{}, invalidArg("store name must not be blank")
	}
	if len(domains) == 0 {
		return Store{}, invalidArg("store %q has no license server domain", name)
	}
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		c, err := cleanDomain(d)
		if err != nil {
			return Store{}, err
		}
		cleaned = append(cleaned, c)
	}
	return Store{ID: id, Name: strings.TrimSpace(name), Domains: cleaned}, nil
}

func cleanDomain(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", invalidArg("license server domain must not be blank")
	}
	host := value
	if scheme, rest, ok := strings.Cut(value, "://"); ok {
		if scheme != "http" && scheme != "https" {
			return "", invalidArg("%q is not a valid domain name", value)
		}
		host = strings.TrimSuffix(rest, "/")
		value = scheme + "://" + host
	}
	if host == "" {
		return "", invalidArg("%q is not a valid domain name", value)
	}
	for _, ch := range host {
		if !(unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '.' || ch == '_' || ch == '-' || ch == ':') {
			return "", invalidArg("%q is not a valid domain name", value)
		}
	}
	return value, nil
}

// Variant is an edition of a product, e.g. "professional".
type Variant struct {
	ID          int64
	Description string
}

// NewVariant creates a variant. The description may be empty.
func NewVariant(id int64, description string) (Variant, error) {
	if id < 0 {
		return Variant{}, invalidArg("variant ID must be positive or zero, got %d", id)
	}
	return Variant{ID: id, Description: strings.TrimSpace(description)}, nil
}

// Version identifies a product release.
type Version struct {
	ID          string
	ReleaseDate time.Time
}

// NewVersion parses the release date using ReleaseDateLayout.
func NewVersion(id, releaseDate string) (Version, error) {
	if strings.TrimSpace(id) == "" {
		return Version{}, invalidArg("version ID must not be blank")
	}
	releaseDate = strings.TrimSpace(releaseDate)
	if releaseDate == "" {
		return Version{}, invalidArg("release date of version %q must not be blank", id)
	}
	t, err := time.Parse(ReleaseDateLayout, releaseDate)
	if err != nil {
		return Version{}, invalidArg("release date of version %q: %v", id, err)
	}
	return Version{ID: strings.TrimSpace(id), ReleaseDate: t}, nil
}

// FormattedReleaseDate returns the release date as yyyy-MM-dd.
func (v Version) FormattedReleaseDate() string {
	return v.ReleaseDate.Format(ReleaseDateLayout)
}

func (v Version) String() string { return v.ID }

// Product is a licensed product version sold by a store.
type Product struct {
	ID        int64
	Name      string
	PublicKey ed25519.PublicKey
	Variant   Variant
	Version   Version
	Store     Store
}

// NewProduct validates the product details. publicKey is the base64 encoded
// Ed25519 key licenses for this product are signed with.
func NewProduct(id int64, name, publicKey string, variant Variant, version Version, store Store) (Product, error) {
	if id < 0 {
		return Product{}, invalidArg("product ID must be positive or zero, got %d", id)
	}
	if strings.TrimSpace(name) == "" {
		return Product{}, invalidArg("product name must not be blank")
	}
	if version.ID == "" {
		return Product{}, invalidArg("version of product %q must be set", name)
	}
	if store.Name == "" || len(store.Domains) == 0 {
		return Product{}, invalidArg("store of product %q must be set", name)
	}
	key, err := DecodePublicKey(publicKey)
	if err != nil {
		return Product{}, invalidArg("public key of product %q: %v", name, err)
	}
	return Product{
		ID:        id,
		Name:      strings.TrimSpace(name),
		PublicKey: key,
		Variant:   variant,
		Version:   version,
		Store:     store,
	}, nil
}

// Identity returns the key used for persistence paths and server requests.
func (p Product) Identity() ProductIdentity {
	return ProductIdentity{
		StoreID:            p.Store.ID,
		StoreName:          p.Store.Name,
		ProductID:          p.ID,
		ProductName:        p.Name,
		VariantID:          p.Variant.ID,
		VariantDescription: p.Variant.Description,
		VersionID:          p.Version.ID,
		ReleaseDate:        p.Version.FormattedReleaseDate(),
	}
}

func (p Product) String() string {
	if p.Variant.Description != "" {
		return p.Name + " " + p.Variant.Description + " " + p.Version.ID
	}
	return p.Name + " " + p.Version.ID
}

// Description returns "name - variant" when a variant description is known,
// either from the product itself or from the given license variant.
func (p Product) Description(licenseVariant string) string {
	variant := p.Variant.Description
	if variant == "" {
		variant = strings.TrimSpace(licenseVariant)
	}
	if variant == "" {
		return p.Name
	}
	return p.Name + " - " + variant
}

// ProductIdentity is the comparable identity of a product installation.
type ProductIdentity struct {
	StoreID            int64
	StoreName          string
	ProductID          int64
	ProductName        string
	VariantID          int64
	VariantDescription string
	VersionID          string
	ReleaseDate        string
}

// StorageKey returns <product>_<variant>_<version>, safe to use as a path segment.
func (id ProductIdentity) StorageKey() string {
	variant := id.VariantDescription
	if variant == "" {
		variant = fmt.Sprintf("%d", id.VariantID)
	}
	return sanitize(id.ProductName) + "_" + sanitize(variant) + "_" + sanitize(id.VersionID)
}

// StoreDir returns the store name, safe to use as a path segment.
func (id ProductIdentity) StoreDir() string {
	return sanitize(id.StoreName)
}

// NativeKey returns the namespaced key used in the OS secure store.
func (id ProductIdentity) NativeKey() string {
	return id.StoreDir() + "/" + id.StorageKey()
}

func (id ProductIdentity) String() string {
	return id.NativeKey()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
}
