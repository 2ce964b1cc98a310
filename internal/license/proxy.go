package license

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ProxyType is the protocol spoken by a proxy server.
type ProxyType string

const (
	ProxyHTTP   ProxyType = "http"
	ProxyHTTPS  ProxyType = "https"
	ProxySOCKS5 ProxyType = "socks5"
)

// ProxyConfig describes how to reach the license servers. The zero value
// means no explicit proxy. Values are treated as immutable once handed to a
// Manager; the password is copied on the way in and out.
type ProxyConfig struct {
	Type     ProxyType
	Host     string
	Port     int
	User     string
	Password []byte
}

// NewProxyConfig validates the proxy parameters and copies the password.
func NewProxyConfig(proxyType ProxyType, host string, port int, user string, password []byte) (ProxyConfig, error) {
	host = strings.TrimSpace(host)
	if proxyType == "" {
		proxyType = ProxyHTTP
	}
	switch proxyType {
	case ProxyHTTP, ProxyHTTPS, ProxySOCKS5:
	default:
		return ProxyConfig{}, invalidArg("unsupported proxy type %q", proxyType)
	}
	if host == "" {
		return ProxyConfig{}, invalidArg("proxy host must not be blank")
	}
	if port <= 0 || port > 65535 {
		return ProxyConfig{}, invalidArg("proxy port %d is out of range", port)
	}
	return ProxyConfig{
		Type:     proxyType,
		Host:     host,
		Port:     port,
		User:     strings.TrimSpace(user),
		Password: clonePassword(password),
	}, nil
}

// IsZero reports whether no proxy is configured.
func (p ProxyConfig) IsZero() bool { return p.Host == "" }

// Clone returns a copy that shares no memory with p.
func (p ProxyConfig) Clone() ProxyConfig {
	p.Password = clonePassword(p.Password)
	return p
}

// Address returns host:port without credentials.
func (p ProxyConfig) Address() string {
	if p.IsZero() {
		return ""
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the proxy URL including credentials, as expected by HTTP transports.
func (p ProxyConfig) URL() string {
	if p.IsZero() {
		return ""
	}
	u := url.URL{Scheme: string(p.Type), Host: p.Address()}
	if p.User != "" {
		u.User = url.UserPassword(p.User, string(p.Password))
	}
	return u.String()
}

func (p ProxyConfig) String() string {
	if p.IsZero() {
		return "direct"
	}
	return fmt.Sprintf("%s://%s", p.Type, p.Address())
}

func clonePassword(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
