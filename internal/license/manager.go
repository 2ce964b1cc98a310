package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dagucloud/licensor/internal/cmn/backoff"
	"github.com/dagucloud/licensor/internal/cmn/logger"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
)

const (
	defaultSyncTimeout           = time.Minute
	defaultRegisterRetries       = 2
	defaultRegisterRetryInterval = 500 * time.Millisecond
	registerRetryMaxInterval     = 5 * time.Second
)

// ManagerConfig tunes a Manager. Zero values select the defaults.
type ManagerConfig struct {
	// SyncTTL is how long a remote validation result is trusted.
	SyncTTL time.Duration
	// SyncTimeout bounds a background sync, which is never canceled otherwise.
	SyncTimeout time.Duration
	// RegisterRetries is the number of retries of a registration call after
	// a transport failure. Negative disables retries.
	RegisterRetries int
	// RegisterRetryInterval is the initial wait between registration attempts.
	RegisterRetryInterval time.Duration
	// Hardware supplies the fingerprint licenses are bound to.
	Hardware HardwareIDProvider
	// Now returns the current time.
	Now func() time.Time
	// CacheStore persists validation results across processes. Optional.
	CacheStore CacheStore
}

// Components are the pluggable capabilities of a Manager.
type Components struct {
	Store    LicenseStore
	Remote   RemoteSyncClient
	Verifier SignatureVerifier
}

// ValidationAction receives the server verdict of a remote sync when it
// differs from the offline verdict returned to the caller.
type ValidationAction interface {
	LicenseValidated(v Verdict)
}

// ValidationActionFunc adapts a function to ValidationAction.
type ValidationActionFunc func(v Verdict)

// LicenseValidated implements ValidationAction.
func (f ValidationActionFunc) LicenseValidated(v Verdict) { f(v) }

// filePathStore is implemented by stores whose file location can be changed.
type filePathStore interface {
	FilePath(id ProductIdentity) string
	SetFilePath(id ProductIdentity, path string) bool
}

// settings is replaced as a whole on every change and never mutated.
type settings struct {
	proxy         ProxyConfig
	agreementText string
	agreementHTML string
}

// Manager validates and assigns the license of one product.
type Manager struct {
	cfg      ManagerConfig
	product  Product
	id       ProductIdentity
	store    LicenseStore
	remote   RemoteSyncClient
	verifier SignatureVerifier
	hardware HardwareIDProvider
	now      func() time.Time
	cache    *ValidationCache
	logger   *slog.Logger

	settings atomic.Pointer[settings]

	// waitMu keeps wg.Add from running while Wait is blocked.
	waitMu sync.Mutex
	wg     sync.WaitGroup

	// writeMu orders license writes with the cache generation they belong
	// to, so that a stale sync never overwrites a license installed after it
	// started.
	writeMu sync.Mutex
}

// NewManager creates a Manager for product. A nil Remote defaults to a
// ServerClient for the product's store and a nil Verifier to JWTVerifier.
func NewManager(cfg ManagerConfig, product Product, components Components, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if components.Store == nil {
		return nil, errors.New("license store is required")
	}
	if len(product.PublicKey) == 0 || product.Name == "" {
		return nil, errors.New("product is not initialized")
	}
	if components.Verifier == nil {
		components.Verifier = JWTVerifier{}
	}
	if components.Remote == nil {
		components.Remote = NewServerClient(product.Store, WithClientLogger(logger))
	}
	if cfg.SyncTTL <= 0 {
		cfg.SyncTTL = DefaultSyncTTL
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}
	if cfg.RegisterRetries == 0 {
		cfg.RegisterRetries = defaultRegisterRetries
	}
	if cfg.RegisterRetryInterval <= 0 {
		cfg.RegisterRetryInterval = defaultRegisterRetryInterval
	}
	if cfg.Hardware == nil {
		cfg.Hardware = &HostHardwareID{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	id := product.Identity()
	m := &Manager{
		cfg:      cfg,
		product:  product,
		id:       id,
		store:    components.Store,
		remote:   components.Remote,
		verifier: components.Verifier,
		hardware: cfg.Hardware,
		now:      cfg.Now,
		cache:    NewValidationCache(cfg.CacheStore, logger),
		logger:   logger.With(tag.Product(id.String())),
	}
	m.settings.Store(&settings{})
	return m, nil
}

// Product returns the managed product.
func (m *Manager) Product() Product { return m.product }

// ProductDescription returns "name - variant" when the variant is known from
// the product or the current license, otherwise the product name.
func (m *Manager) ProductDescription(ctx context.Context) string {
	var variant string
	if lic, err := m.License(ctx); err == nil && lic != nil {
		variant = lic.Claims.VariantDescription
	}
	return m.product.Description(variant)
}

// License returns the stored license. It returns nil, nil when no license is
// stored and an error wrapping ErrTampered when the stored license is rejected.
func (m *Manager) License(ctx context.Context) (*License, error) {
	encoded, err := m.store.Load(ctx, m.id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load license: %w", err)
	}
	claims, err := m.verify(encoded)
	if err != nil {
		return nil, err
	}
	return &License{Claims: claims, Encoded: encoded}, nil
}

func (m *Manager) verify(encoded string) (*LicenseClaims, error) {
	claims, err := m.verifier.Verify(m.product.PublicKey, encoded)
	if err != nil {
		if !errors.Is(err, ErrTampered) {
			err = fmt.Errorf("%w: %w", ErrTampered, err)
		}
		return nil, err
	}
	if !claims.matches(m.id) {
		return nil, fmt.Errorf("%w: license was issued for %s (store %d, product %d)",
			ErrTampered, claims.ProductName, claims.StoreID, claims.ProductID)
	}
	return claims, nil
}

// Validate returns the offline verdict of the stored license. It never
// performs network I/O.
func (m *Manager) Validate(ctx context.Context) Verdict {
	v := m.offline(ctx)
	m.cache.RecordOffline(m.id, v, m.now())
	return v
}

func (m *Manager) offline(ctx context.Context) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Offline validation panicked", tag.Error(r))
			v = verdict(ResultError, fmt.Sprint(r))
		}
	}()

	encoded, err := m.store.Load(ctx, m.id)
	if errors.Is(err, ErrNotFound) {
		return verdict(ResultNotFound, "")
	}
	if err != nil {
		return verdict(ResultError, err.Error())
	}
	claims, err := m.verify(encoded)
	if err != nil {
		return verdict(ResultInvalid, err.Error())
	}
	return m.evaluate(claims)
}

func (m *Manager) evaluate(claims *LicenseClaims) Verdict {
	hw, err := m.hardware.HardwareID()
	if err != nil {
		return verdict(ResultError, err.Error())
	}
	return Evaluate(claims, m.now(), hw, m.product.Version)
}

// ValidateAsync returns the offline verdict like Validate and, when the last
// remote sync is older than the sync TTL, reconciles with the license server
// in the background. action, which may be nil, is called at most once and only
// when the server verdict differs from the returned one. A call made while a
// sync is in flight does not start another one and its action is not called.
func (m *Manager) ValidateAsync(ctx context.Context, action ValidationAction) Verdict {
	v := m.Validate(ctx)

	now := m.now()
	if !m.cache.NeedsSync(m.id, now, m.cfg.SyncTTL) {
		return v
	}
	gen, ok := m.cache.TryBeginSync(m.id, now, m.cfg.SyncTTL)
	if !ok {
		return v
	}
	proxy := m.settings.Load().proxy.Clone()

	m.waitMu.Lock()
	m.wg.Add(1)
	m.waitMu.Unlock()
	go func() {
		defer m.wg.Done()
		defer m.cache.EndSync(m.id)
		m.sync(context.WithoutCancel(ctx), gen, v, proxy, action)
	}()
	return v
}

func (m *Manager) sync(ctx context.Context, gen uint64, offline Verdict, proxy ProxyConfig, action ValidationAction) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.SyncTimeout)
	defer cancel()

	hw, err := m.hardware.HardwareID()
	if err != nil {
		m.logger.Warn("License sync skipped", tag.Error(err))
		return
	}
	encoded, err := m.store.Load(ctx, m.id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.Warn("License sync skipped", tag.Error(err))
		return
	}

	out, err := m.remote.Sync(ctx, SyncRequest{Identity: m.id, License: encoded, HardwareID: hw}, proxy)
	if err != nil {
		if IsSyncFailure(err) {
			m.logger.Warn("License sync failed, will retry", tag.Error(err))
		} else {
			m.logger.Error("License sync failed", tag.Error(err))
		}
		return
	}
	if out.License != "" && out.License != encoded && out.Result != ResultDisabled {
		if _, err := m.verify(out.License); err != nil {
			m.logger.Warn("License sync failed, will retry",
				tag.Domain(out.Domain),
				tag.Reason("server returned an unverifiable license"),
				tag.Error(err),
			)
			return
		}
	}

	server := verdict(out.Result, out.Message)
	syncedAt := m.now()
	if !m.applySync(ctx, gen, encoded, out, server, syncedAt) {
		return
	}
	m.logger.Info("License synchronized",
		tag.Domain(out.Domain),
		tag.LastSync(syncedAt),
		tag.Result(server.Result.String()),
		tag.Offline(offline.Result.String()),
	)
	if action != nil && server.Result != offline.Result {
		action.LicenseValidated(server)
	}
}

// applySync writes the outcome of the sync started at generation gen. It
// returns false, changing nothing, when a license was installed or deleted
// since then or when the store could not be updated.
func (m *Manager) applySync(ctx context.Context, gen uint64, encoded string, out *RemoteOutcome, server Verdict, syncedAt time.Time) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if !m.cache.Current(m.id, gen) {
		m.logger.Debug("License changed during sync; discarding server verdict")
		return false
	}
	switch {
	case out.Result == ResultDisabled:
		if err := m.store.Delete(ctx, m.id); err != nil {
			m.logger.Warn("Failed to delete disabled license", tag.Error(err))
		}
	case out.License != "" && out.License != encoded:
		if err := m.store.Save(ctx, m.id, out.License); err != nil {
			m.logger.Warn("License sync failed, will retry", tag.Error(err))
			return false
		}
	}
	return m.cache.RecordSync(m.id, gen, server, syncedAt)
}

// AssignLicense registers the serial key of a purchased license for this
// computer. It blocks on the license server and may take a while.
func (m *Manager) AssignLicense(ctx context.Context, email, serialKey string) (*License, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(serialKey) == "" {
		return nil, &RegistrationError{Result: ResultIncomplete, Message: "e-mail and serial key are required"}
	}
	return m.register(ctx, RegistrationRequest{Email: email, SerialKey: serialKey})
}

// AssignTrial requests a trial license for this computer. It blocks on the
// license server and may take a while.
func (m *Manager) AssignTrial(ctx context.Context, email, firstName, lastName string) (*License, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, &RegistrationError{Result: ResultIncomplete, Message: "e-mail, first name and last name are required"}
	}
	return m.register(ctx, RegistrationRequest{Email: email, FirstName: firstName, LastName: lastName})
}

func (m *Manager) register(ctx context.Context, req RegistrationRequest) (*License, error) {
	hw, err := m.hardware.HardwareID()
	if err != nil {
		return nil, &RegistrationError{Result: ResultError, Message: "failed to determine hardware ID", Err: err}
	}
	req.Identity = m.id
	req.HardwareID = hw
	proxy := m.settings.Load().proxy.Clone()

	var out *RemoteOutcome
	op := func(ctx context.Context) error {
		var callErr error
		out, callErr = m.remote.Register(ctx, req, proxy)
		return callErr
	}
	if m.cfg.RegisterRetries < 0 {
		err = op(ctx)
	} else {
		err = backoff.Retry(logger.WithLogger(ctx, m.logger), op, m.registerRetryPolicy(), IsRetriable)
	}
	if err != nil {
		return nil, &RegistrationError{Result: ResultError, Message: "license server request failed", Err: err}
	}
	if out.Result != ResultValid {
		return nil, &RegistrationError{Result: out.Result, Message: out.Message}
	}
	if out.License == "" {
		return nil, &RegistrationError{Result: ResultError, Message: "license server returned no license"}
	}

	now := m.now()
	lic, err := m.install(ctx, out.License, now)
	if err != nil {
		return nil, err
	}
	m.logger.Info("License assigned",
		tag.Domain(out.Domain),
		tag.Email(lic.Claims.Email),
		tag.Trial(lic.IsTrial()),
	)
	return lic, nil
}

func (m *Manager) registerRetryPolicy() backoff.RetryPolicy {
	base := backoff.NewExponentialBackoffPolicy(m.cfg.RegisterRetryInterval)
	base.MaxInterval = registerRetryMaxInterval
	base.MaxRetries = m.cfg.RegisterRetries
	return backoff.WithJitter(base, backoff.FullJitter)
}

// AssignLicenseFile installs a license from a file, for computers that
// cannot reach the license server. The next ValidateAsync reconciles it with
// the server.
func (m *Manager) AssignLicenseFile(ctx context.Context, path string) (*License, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return nil, &RegistrationError{Result: ResultError, Message: "failed to read license file", Err: err}
	}
	lic, err := m.install(ctx, string(data), time.Time{})
	if err != nil {
		return nil, err
	}
	m.logger.Info("License installed from file", tag.File(path), tag.Trial(lic.IsTrial()))
	return lic, nil
}

// install verifies and evaluates encoded and stores it only when it is valid
// for this computer. lastSync becomes the last remote sync time.
func (m *Manager) install(ctx context.Context, encoded string, lastSync time.Time) (*License, error) {
	encoded = strings.TrimSpace(encoded)
	claims, err := m.verify(encoded)
	if err != nil {
		return nil, &RegistrationError{Result: ResultInvalid, Message: "license rejected", Err: err}
	}
	v := m.evaluate(claims)
	if v.Result != ResultValid {
		return nil, &RegistrationError{Result: v.Result, Message: v.Detail}
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.store.Save(ctx, m.id, encoded); err != nil {
		return nil, &RegistrationError{Result: ResultError, Message: "failed to store license", Err: err}
	}
	m.cache.Reset(m.id, v, m.now(), lastSync)
	return &License{Claims: claims, Encoded: encoded}, nil
}

// DeleteLicense removes the stored license from every backend. Deleting a
// missing license succeeds.
func (m *Manager) DeleteLicense(ctx context.Context) error {
	m.writeMu.Lock()
	err := m.store.Delete(ctx, m.id)
	m.cache.Invalidate(m.id)
	m.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}
	m.logger.Info("License deleted")
	return nil
}

// LastResult returns the cached validation state.
func (m *Manager) LastResult() CachedResult {
	return m.cache.Get(m.id)
}

// Wait blocks until all background syncs have completed. Syncs started by a
// concurrent ValidateAsync are launched only after Wait returns.
func (m *Manager) Wait() {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	m.wg.Wait()
}

func (m *Manager) updateSettings(fn func(s *settings)) {
	for {
		old := m.settings.Load()
		next := *old
		next.proxy = old.proxy.Clone()
		fn(&next)
		if m.settings.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetProxy routes future license server requests through proxy. Syncs
// already in flight keep the proxy they started with. The zero ProxyConfig
// removes the proxy.
func (m *Manager) SetProxy(proxy ProxyConfig) {
	proxy = proxy.Clone()
	m.updateSettings(func(s *settings) { s.proxy = proxy })
}

// Proxy returns a copy of the configured proxy.
func (m *Manager) Proxy() ProxyConfig {
	return m.settings.Load().proxy.Clone()
}

// SetLicenseFilePath moves the license file to path and keeps a copy of the
// license there. An empty path disables license files. It returns false,
// leaving the configuration unchanged, when path is not usable.
func (m *Manager) SetLicenseFilePath(path string) bool {
	fs, ok := m.store.(filePathStore)
	if !ok {
		return false
	}
	return fs.SetFilePath(m.id, path)
}

// LicenseFilePath returns the license file path, or an empty string when
// license files are disabled.
func (m *Manager) LicenseFilePath() string {
	fs, ok := m.store.(filePathStore)
	if !ok {
		return ""
	}
	return fs.FilePath(m.id)
}

// SetLicenseAgreementText sets the plain text license terms.
func (m *Manager) SetLicenseAgreementText(text string) {
	m.updateSettings(func(s *settings) { s.agreementText = text })
}

// SetLicenseAgreementHTML sets the HTML license terms.
func (m *Manager) SetLicenseAgreementHTML(html string) {
	m.updateSettings(func(s *settings) { s.agreementHTML = html })
}

// LicenseAgreementText returns the plain text license terms.
func (m *Manager) LicenseAgreementText() string { return m.settings.Load().agreementText }

// LicenseAgreementHTML returns the HTML license terms.
func (m *Manager) LicenseAgreementHTML() string { return m.settings.Load().agreementHTML }

// LicenseAgreement returns the HTML terms if set, otherwise the plain text terms.
func (m *Manager) LicenseAgreement() string {
	s := m.settings.Load()
	if s.agreementHTML != "" {
		return s.agreementHTML
	}
	return s.agreementText
}
