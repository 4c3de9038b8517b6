// Package clientinfo snapshots ambient client context (user agent,
// referrer, page URL, screen size) at call time, so every event carries the
// context that was current when it was tracked rather than when it was
// delivered.
package clientinfo

import (
	"net/http"
	"strings"

	"github.com/caduceuspress/pulse/pkg/event"
)

// Provider yields a point-in-time snapshot of client context.
type Provider interface {
	Snapshot() event.ClientInfo
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() event.ClientInfo

// Snapshot calls f.
func (f ProviderFunc) Snapshot() event.ClientInfo { return f() }

// Static is a Provider returning a fixed snapshot. Useful for embedded
// hosts whose context never changes, and in tests.
type Static struct {
	Info event.ClientInfo
}

// Snapshot returns a copy of the fixed snapshot.
func (s Static) Snapshot() event.ClientInfo { return s.Info }

// FromRequest builds a snapshot from an incoming HTTP request. The page URL
// and screen size arrive in headers set by the browser client; the referrer
// falls back to the standard Referer header.
func FromRequest(r *http.Request) event.ClientInfo {
	info := event.ClientInfo{
		UserAgent:  r.UserAgent(),
		Referrer:   r.Header.Get("X-Pulse-Referrer"),
		PageURL:    r.Header.Get("X-Pulse-Page-URL"),
		ScreenSize: r.Header.Get("X-Pulse-Screen-Size"),
	}
	if info.Referrer == "" {
		info.Referrer = r.Referer()
	}
	if info.PageURL == "" && r.URL != nil {
		info.PageURL = r.URL.String()
	}
	return info
}

// ClientIP extracts the client IP address from a request, honoring proxy
// headers before falling back to the socket address.
func ClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
