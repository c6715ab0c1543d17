// Package security guards the two places untrusted input reaches the
// filesystem or the network: image URLs returned by providers and file names
// derived from prompts or request paths.
package security

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
)

var (
	ErrPrivateIP     = errors.New("URL resolves to private IP address")
	ErrUntrustedHost = errors.New("URL host is not trusted")
	ErrInvalidScheme = errors.New("only HTTPS URLs are allowed")
)

// imageHosts serve generated images. Subdomains match too.
var imageHosts = []string{
	"oaidalleapiprodscus.blob.core.windows.net",
	"dalleprodsec.blob.core.windows.net",
	"storage.googleapis.com",
	"googleusercontent.com",
}

// blockedPrefixes are ranges an icon download must never reach, on top of
// the loopback, private and link-local checks netip already provides.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fc00::/7"),
}

var skip atomic.Bool

// SetSkipValidation disables URL checks process-wide. Tests use it to reach
// httptest servers.
func SetSkipValidation(v bool) { skip.Store(v) }

// ValidateImageURL rejects anything but HTTPS URLs on public addresses. With
// strict set the host must also be a known image host.
func ValidateImageURL(rawURL string, strict bool) error {
	if skip.Load() {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return ErrInvalidScheme
	}

	host := strings.ToLower(u.Hostname())
	if strict && !trustedHost(host) {
		return fmt.Errorf("%w: %s", ErrUntrustedHost, host)
	}

	addrs, err := resolve(host)
	if err != nil {
		// the download itself reports unresolvable hosts
		return nil
	}
	for _, a := range addrs {
		if blocked(a) {
			return ErrPrivateIP
		}
	}
	return nil
}

func trustedHost(host string) bool {
	for _, h := range imageHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func resolve(host string) ([]netip.Addr, error) {
	if a, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{a}, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	addrs := make([]netip.Addr, 0, len(ips))
	for _, ip := range ips {
		if a, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}

func blocked(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsUnspecified() ||
		a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() || a.IsMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
