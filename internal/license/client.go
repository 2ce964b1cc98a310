package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dagucloud/licensor/internal/build"
	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
)

const (
	validatePath = "/licenses/validate"
	registerPath = "/licenses/register"

	defaultClientTimeout = 30 * time.Second
	maxErrorBodyLength   = 256
	proxyClientCapacity  = 4
)

// SyncRequest asks the server to validate the local license.
type SyncRequest struct {
	Identity   ProductIdentity
	License    string
	HardwareID string
}

// RegistrationRequest asks the server to issue a license. An empty SerialKey
// requests a trial.
type RegistrationRequest struct {
	Identity   ProductIdentity
	HardwareID string
	Email      string
	FirstName  string
	LastName   string
	SerialKey  string
}

// RemoteOutcome is a definitive answer from a license server.
type RemoteOutcome struct {
	Result  Result
	License string
	Message string
	Domain  string
}

// RemoteSyncClient talks to the license servers of a store. Implementations
// perform a single attempt per call and report failures as TransportError or
// ServerError, never as a verdict.
type RemoteSyncClient interface {
	Sync(ctx context.Context, req SyncRequest, proxy ProxyConfig) (*RemoteOutcome, error)
	Register(ctx context.Context, req RegistrationRequest, proxy ProxyConfig) (*RemoteOutcome, error)
}

type requestBody struct {
	License     string `json:"license,omitempty"`
	StoreID     int64  `json:"store_id"`
	StoreName   string `json:"store_name"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   int64  `json:"variant_id"`
	Variant     string `json:"variant,omitempty"`
	Version     string `json:"version"`
	HardwareID  string `json:"hardware_id"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	SerialKey   string `json:"serial_key,omitempty"`
}

type responseBody struct {
	Result  *int   `json:"result"`
	License string `json:"license,omitempty"`
	Message string `json:"message,omitempty"`
}

func newRequestBody(id ProductIdentity, hardwareID string) requestBody {
	return requestBody{
		StoreID:     id.StoreID,
		StoreName:   id.StoreName,
		ProductID:   id.ProductID,
		ProductName: id.ProductName,
		VariantID:   id.VariantID,
		Variant:     id.VariantDescription,
		Version:     id.VersionID,
		HardwareID:  hardwareID,
	}
}

// ServerClient is the HTTP implementation of RemoteSyncClient.
type ServerClient struct {
	domains   []string
	timeout   time.Duration
	userAgent string
	pick      func(n int) int
	logger    *slog.Logger
	client    *resty.Client
	// proxied holds one client per proxy URL.
	proxied *lru.Cache[string, *resty.Client]
}

var _ RemoteSyncClient = (*ServerClient)(nil)

// ClientOption configures a ServerClient.
type ClientOption func(*ServerClient)

// WithClientTimeout sets the timeout of a single request.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *ServerClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDomainPicker replaces the random domain selection.
func WithDomainPicker(pick func(n int) int) ClientOption {
	return func(c *ServerClient) {
		if pick != nil {
			c.pick = pick
		}
	}
}

// WithClientLogger sets the logger used for request diagnostics.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *ServerClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewServerClient creates a client for the license servers of store.
func NewServerClient(store Store, opts ...ClientOption) *ServerClient {
	c := &ServerClient{
		domains:   append([]string(nil), store.Domains...),
		timeout:   defaultClientTimeout,
		userAgent: build.Slug + "/" + build.Version,
		pick:      rand.IntN,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = c.newRestyClient()
	c.proxied, _ = lru.NewWithEvict(proxyClientCapacity, func(_ string, evicted *resty.Client) {
		evicted.GetClient().CloseIdleConnections()
	})
	return c
}

func (c *ServerClient) newRestyClient() *resty.Client {
	return resty.New().
		SetTimeout(c.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", c.userAgent)
}

// clientFor returns a client routed through proxy. Clients are never
// reconfigured, so a call keeps the proxy it started with. Clients of proxies
// no longer in use are evicted and their idle connections closed.
func (c *ServerClient) clientFor(proxy ProxyConfig) *resty.Client {
	if proxy.IsZero() {
		return c.client
	}
	proxyURL := proxy.URL()
	if cached, ok := c.proxied.Get(proxyURL); ok {
		return cached
	}
	client := c.newRestyClient().SetProxy(proxyURL)
	if cached, ok, _ := c.proxied.PeekOrAdd(proxyURL, client); ok {
		return cached
	}
	return client
}

// Sync implements RemoteSyncClient.
func (c *ServerClient) Sync(ctx context.Context, req SyncRequest, proxy ProxyConfig) (*RemoteOutcome, error) {
	body := newRequestBody(req.Identity, req.HardwareID)
	body.License = strings.TrimSpace(req.License)
	return c.post(ctx, validatePath, body, proxy)
}

// Register implements RemoteSyncClient.
func (c *ServerClient) Register(ctx context.Context, req RegistrationRequest, proxy ProxyConfig) (*RemoteOutcome, error) {
	body := newRequestBody(req.Identity, req.HardwareID)
	body.Email = strings.TrimSpace(req.Email)
	body.FirstName = strings.TrimSpace(req.FirstName)
	body.LastName = strings.TrimSpace(req.LastName)
	body.SerialKey = strings.TrimSpace(req.SerialKey)
	return c.post(ctx, registerPath, body, proxy)
}

func (c *ServerClient) post(ctx context.Context, path string, body requestBody, proxy ProxyConfig) (*RemoteOutcome, error) {
	if len(c.domains) == 0 {
		return nil, &TransportError{Err: fmt.Errorf("no license server domain configured")}
	}
	domain := c.domains[c.pick(len(c.domains))]
	endpoint := baseURL(domain) + path
	requestID := uuid.NewString()

	c.logger.Debug("Contacting license server",
		tag.URL(endpoint),
		tag.RequestID(requestID),
		tag.Proxy(proxy.Address()),
	)

	resp, err := c.clientFor(proxy).R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return nil, &TransportError{Domain: domain, Err: err}
	}
	c.logger.Debug("License server responded",
		tag.RequestID(requestID),
		tag.StatusCode(resp.StatusCode()),
	)
	return parseResponse(domain, resp.StatusCode(), resp.Body())
}

func parseResponse(domain string, status int, raw []byte) (*RemoteOutcome, error) {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return nil, &ServerError{StatusCode: status, Message: truncate(string(raw))}
	}

	var payload responseBody
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ServerError{StatusCode: status, Message: fmt.Sprintf("failed to unmarshal response: %v", err)}
	}
	if payload.Result == nil {
		return nil, &ServerError{StatusCode: status, Message: "response carries no result code"}
	}
	result, ok := ParseResult(*payload.Result)
	if !ok {
		return nil, &ServerError{StatusCode: status, Message: fmt.Sprintf("unknown result code %d", *payload.Result)}
	}
	if result == ResultError {
		msg := payload.Message
		if msg == "" {
			msg = "license server reported an internal error"
		}
		return nil, &ServerError{StatusCode: status, Message: msg}
	}
	return &RemoteOutcome{
		Result:  result,
		License: strings.TrimSpace(payload.License),
		Message: payload.Message,
		Domain:  domain,
	}, nil
}

func baseURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimSuffix(domain, "/")
	}
	return "https://" + domain
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength] + "..."
	}
	return s
}
