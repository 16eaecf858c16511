// Package dns contains pure functions for DNS verification logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package dns

import (
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// Canonicalization
// =============================================================================

// CanonicalDomain reduces an FQDN as entered by a user to a bare lowercase domain.
// Scheme, userinfo, port and path are dropped.
//
// Example:
//
//	CanonicalDomain("https://WWW.Example.com/app") // returns "www.example.com"
//	CanonicalDomain("example.com:8080")            // returns "example.com"
func CanonicalDomain(fqdn string) string {
	s := strings.ToLower(strings.TrimSpace(fqdn))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return strings.TrimSuffix(u.Hostname(), ".")
		}
		s = s[strings.Index(s, "://")+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.TrimSuffix(s, ".")
}

// DisplayDomain strips a leading "www." for user-facing messages.
func DisplayDomain(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}

// =============================================================================
// Verification
// =============================================================================

// VerificationInput contains DNS lookup results passed from the shell layer.
// Failed lookups arrive as empty slices.
type VerificationInput struct {
	Domain     string
	InboundIPs []net.IP
	DomainIPs  []net.IP
}

// VerificationResult is the pure output of verification logic.
type VerificationResult struct {
	Verified bool
	Skipped  bool
	Error    string
}

// Verify decides whether a domain points at the host the request arrived on.
//
// Only the first inbound address is compared against the domain's full A record set.
// An inbound host without addresses is vacuously verified.
func Verify(input VerificationInput) VerificationResult {
	if len(input.InboundIPs) == 0 {
		return VerificationResult{Verified: true, Skipped: true}
	}

	// TODO: confirm whether any inbound address should satisfy the check instead of only the first.
	want := input.InboundIPs[0]
	for _, ip := range input.DomainIPs {
		if ip.Equal(want) {
			return VerificationResult{Verified: true}
		}
	}

	return VerificationResult{
		Verified: false,
		Error:    "DNS records for " + input.Domain + " do not include " + want.String(),
	}
}
