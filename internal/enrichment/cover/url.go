package cover

import (
	"net/url"
	"strings"
)

// DefaultPlaceholderHosts are image hosts whose URLs only ever stand in for
// a real cover.
var DefaultPlaceholderHosts = []string{
	"placehold.co",
	"placehold.it",
	"placeholder.com",
	"via.placeholder.com",
	"dummyimage.com",
}

// NormalizeURL forces the https scheme, including on protocol-relative
// URLs, and drops Google's page-curl effect parameter. It is idempotent.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	switch {
	case len(u) >= 5 && strings.EqualFold(u[:5], "http:"):
		u = "https:" + u[5:]
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	}
	return strings.ReplaceAll(u, "&edge=curl", "")
}

// PlaceholderMatcher decides whether a cover URL is a stand-in.
type PlaceholderMatcher struct {
	hosts []string
}

// NewPlaceholderMatcher builds a matcher for the default hosts plus extra.
func NewPlaceholderMatcher(extra ...string) *PlaceholderMatcher {
	hosts := make([]string, 0, len(DefaultPlaceholderHosts)+len(extra))
	for _, h := range append(append([]string{}, DefaultPlaceholderHosts...), extra...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &PlaceholderMatcher{hosts: hosts}
}

// IsPlaceholder reports whether u is empty, an inline data URI, or points
// at a placeholder image service. Image proxies are seen through: a
// placeholder host in a path segment or in a query value counts too.
func (m *PlaceholderMatcher) IsPlaceholder(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" {
		return true
	}
	if len(u) >= 5 && strings.EqualFold(u[:5], "data:") {
		return true
	}

	parsed, err := url.Parse(u)
	if err != nil || parsed.Hostname() == "" {
		// Not a URL we can read a host from; fall back to a substring scan.
		lower := strings.ToLower(u)
		for _, h := range m.hosts {
			if strings.Contains(lower, h) {
				return true
			}
		}
		return false
	}

	if m.isPlaceholderHost(parsed.Hostname()) {
		return true
	}
	for _, segment := range strings.Split(parsed.Path, "/") {
		if m.isPlaceholderHost(segment) {
			return true
		}
	}
	for _, values := range parsed.Query() {
		for _, v := range values {
			if inner, err := url.Parse(v); err == nil && m.isPlaceholderHost(inner.Hostname()) {
				return true
			}
		}
	}
	return false
}

func (m *PlaceholderMatcher) isPlaceholderHost(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, h := range m.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

var defaultMatcher = NewPlaceholderMatcher()

// IsPlaceholder reports whether u is a placeholder using the default hosts.
func IsPlaceholder(u string) bool {
	return defaultMatcher.IsPlaceholder(u)
}
