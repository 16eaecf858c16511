// Package admission decides whether a custom domain may be bound to an application.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	coredns "github.com/artpar/berth/internal/core/dns"
)

// Bindings reports existing domain bindings. The store implements this interface.
type Bindings interface {
	IsDomainBound(ctx context.Context, applicationID, fqdn string) (bool, error)
}

// Resolver looks up A records. Lookup failures are reported as an empty result.
type Resolver interface {
	LookupA(ctx context.Context, host string) []net.IP
}

// Request is a candidate domain binding.
type Request struct {
	ApplicationID string
	FQDN          string
	ForceSave     bool
	// InboundHost is the host the request arrived on, without port.
	InboundHost string
}

// Controller validates domain bindings.
type Controller struct {
	bindings Bindings
	resolver Resolver
	devMode  bool
	logger   *slog.Logger
}

// NewController creates a controller. In dev mode DNS verification is skipped.
func NewController(bindings Bindings, resolver Resolver, devMode bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		bindings: bindings,
		resolver: resolver,
		devMode:  devMode,
		logger:   logger.With("component", "admission"),
	}
}

// Validate returns nil when the domain may be bound. Rejections are *Error values;
// any other error comes from the bindings lookup and is returned unchanged.
func (c *Controller) Validate(ctx context.Context, req Request) error {
	fqdn := strings.ToLower(req.FQDN)
	domain := coredns.CanonicalDomain(fqdn)

	found, err := c.bindings.IsDomainBound(ctx, req.ApplicationID, fqdn)
	if err != nil {
		return fmt.Errorf("check domain binding: %w", err)
	}
	if found {
		return conflictError(coredns.DisplayDomain(domain))
	}

	if c.devMode || req.ForceSave {
		c.logger.Debug("dns verification skipped",
			"domain", domain,
			"dev_mode", c.devMode,
			"force_save", req.ForceSave,
		)
		return nil
	}

	input := coredns.VerificationInput{
		Domain:     domain,
		InboundIPs: c.resolver.LookupA(ctx, req.InboundHost),
		DomainIPs:  c.resolver.LookupA(ctx, domain),
	}
	result := coredns.Verify(input)

	c.logger.Debug("dns verification",
		"domain", domain,
		"inbound_host", req.InboundHost,
		"inbound_ips", input.InboundIPs,
		"domain_ips", input.DomainIPs,
		"verified", result.Verified,
		"skipped", result.Skipped,
	)

	if !result.Verified {
		return mismatchError(domain)
	}
	return nil
}
