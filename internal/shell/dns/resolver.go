// Package dns provides DNS resolution for domain verification.
// This is part of the Imperative Shell - handles I/O (DNS lookups).
package dns

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// DefaultServers are the public resolvers used for domain verification.
// The ambient system resolver is never consulted.
var DefaultServers = []string{"1.1.1.1", "8.8.8.8"}

// DefaultTimeout bounds a single lookup against one server.
const DefaultTimeout = 5 * time.Second

// lookupFunc resolves host against a single server.
type lookupFunc func(ctx context.Context, server, host string) ([]net.IP, error)

// Resolver performs A record lookups against a fixed list of servers.
type Resolver struct {
	servers []string
	timeout time.Duration
	lookup  lookupFunc
	logger  *slog.Logger
}

// NewResolver creates a resolver for the given servers. Empty servers means DefaultServers.
func NewResolver(servers []string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		servers: servers,
		timeout: timeout,
		lookup:  lookupViaServer,
		logger:  logger.With("component", "dns_resolver"),
	}
}

// LookupA returns the IPv4 addresses of host, asking each server in order until one answers.
// Every failure collapses to an empty result. IP literals have no A records and yield nothing.
func (r *Resolver) LookupA(ctx context.Context, host string) []net.IP {
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}

	for _, server := range r.servers {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		ips, err := r.lookup(lookupCtx, server, host)
		cancel()
		if err == nil {
			return ips
		}
		if dnsErr, ok := err.(*net.DNSError); ok && dnsErr.IsNotFound {
			return nil
		}
		r.logger.Debug("dns lookup failed", "host", host, "server", server, "error", err)
	}
	return nil
}

func lookupViaServer(ctx context.Context, server, host string) ([]net.IP, error) {
	addr := net.JoinHostPort(server, "53")
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	return resolver.LookupIP(ctx, "ip4", host)
}
