package features

import (
	"context"
	"net"
	"strings"
	"time"
)

// Resolver is the subset of *net.Resolver used for the DNS feature
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// NetworkExtractor computes host-level features, including DNS resolution
type NetworkExtractor struct {
	resolver Resolver
	timeout  time.Duration
}

// NewNetworkExtractor creates an extractor. A nil resolver uses net.DefaultResolver.
func NewNetworkExtractor(resolver Resolver, timeout time.Duration) *NetworkExtractor {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NetworkExtractor{resolver: resolver, timeout: timeout}
}

// Extract computes network features for rawURL. A failed or timed out
// lookup sets dns_resolves to 0.
func (e *NetworkExtractor) Extract(ctx context.Context, rawURL string) Record {
	host := Hostname(rawURL)
	isIP := IsIPHost(host)

	numSubdomains := strings.Count(host, ".") - 1
	if numSubdomains < 0 || isIP {
		numSubdomains = 0
	}

	return Record{
		"domain_length":  float64(len(host)),
		"num_subdomains": float64(numSubdomains),
		"has_ip_address": boolFeature(isIP),
		"dns_resolves":   boolFeature(e.resolves(ctx, host, isIP)),
		"uses_https":     boolFeature(strings.HasPrefix(strings.ToLower(strings.TrimSpace(rawURL)), "https")),
	}
}

func (e *NetworkExtractor) resolves(ctx context.Context, host string, isIP bool) bool {
	if host == "" {
		return false
	}
	if isIP {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	addrs, err := e.resolver.LookupHost(ctx, host)
	return err == nil && len(addrs) > 0
}
