// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
// Use these functions instead of raw strings to ensure consistent
// and type-safe log output across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Core identification tags

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Product creates a tag for product identities.
func Product(id string) slog.Attr {
	return slog.String("product", id)
}

// Backend creates a tag for license store backend kinds.
func Backend(kind string) slog.Attr {
	return slog.String("backend", kind)
}

// RequestID creates a tag for request IDs (for API/external calls).
func RequestID(id string) slog.Attr {
	return slog.String("request-id", id)
}

// Attempt creates a tag for attempt numbers.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Path and file tags

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Path creates a tag for generic paths (prefer File when specific).
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Network tags

// Domain creates a tag for license server domains.
func Domain(domain string) slog.Attr {
	return slog.String("domain", domain)
}

// URL creates a tag for URLs.
func URL(url string) slog.Attr {
	return slog.String("url", url)
}

// Proxy creates a tag for proxy addresses. Credentials must not be passed.
func Proxy(addr string) slog.Attr {
	return slog.String("proxy", addr)
}

// StatusCode creates a tag for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status-code", code)
}

// Timing tags

// Interval creates a tag for interval durations.
func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

// LastSync creates a tag for the time of the last remote sync.
func LastSync(t time.Time) slog.Attr {
	return slog.Time("last-sync", t)
}

// Outcome tags

// Result creates a tag for operation results.
func Result(r string) slog.Attr {
	return slog.String("result", r)
}

// Offline creates a tag for offline validation results.
func Offline(r string) slog.Attr {
	return slog.String("offline", r)
}

// Reason creates a tag for reason for an action or state.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Config and misc

// Config creates a tag for configuration names.
func Config(name string) slog.Attr {
	return slog.String("config", name)
}

// Email creates a tag for e-mail addresses.
func Email(addr string) slog.Attr {
	return slog.String("email", addr)
}

// Trial creates a tag marking trial licenses.
func Trial(trial bool) slog.Attr {
	return slog.Bool("trial", trial)
}
