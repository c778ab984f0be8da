// Package intel collects best-effort domain facts (WHOIS age, registrar,
// country, TLS certificate status) for display next to a verdict.
// Nothing here influences the score.
package intel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/phishfuse/internal/cache"
	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/model"
)

// WhoisFacts are the parsed fields used by the report
type WhoisFacts struct {
	Created   time.Time
	Registrar string
	Country   string
}

// Collector gathers domain intelligence with its own timeout
type Collector struct {
	timeout time.Duration
	cache   cache.Cache
	logger  *slog.Logger
	now     func() time.Time

	// lookups are swappable so tests never touch the network
	whoisLookup func(ctx context.Context, domain string) (WhoisFacts, error)
	tlsProbe    func(ctx context.Context, host string) (string, error)
}

// NewCollector creates a collector. A nil cache disables caching.
func NewCollector(timeout time.Duration, c cache.Cache, logger *slog.Logger) *Collector {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	col := &Collector{
		timeout: timeout,
		cache:   c,
		logger:  logger,
		now:     time.Now,
	}
	col.whoisLookup = col.lookupWhois
	col.tlsProbe = probeTLS
	return col
}

// Collect returns domain facts for rawURL. Any field that cannot be
// determined is model.Unknown; Collect never fails.
func (c *Collector) Collect(ctx context.Context, rawURL string) model.DomainInfo {
	host := features.Hostname(rawURL)
	if host == "" {
		return model.UnknownDomainInfo()
	}

	key := cache.Key("intel", host)
	if info, ok := cache.GetJSON[model.DomainInfo](c.cache, key); ok {
		return info
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	info := model.UnknownDomainInfo()
	g, gctx := errgroup.WithContext(ctx)

	if !features.IsIPHost(host) {
		g.Go(func() error {
			facts, err := c.whoisLookup(gctx, host)
			if err != nil {
				c.logger.Debug("whois lookup failed", "host", host, "error", err)
				return nil
			}
			if !facts.Created.IsZero() {
				info.DomainAge = formatAge(c.now().Sub(facts.Created))
			}
			if facts.Registrar != "" {
				info.Registrar = facts.Registrar
			}
			if facts.Country != "" {
				info.Country = strings.ToUpper(facts.Country)
			}
			return nil
		})
	}

	var sslStatus string
	g.Go(func() error {
		status, err := c.tlsProbe(gctx, host)
		if err != nil {
			c.logger.Debug("tls probe failed", "host", host, "error", err)
		}
		sslStatus = status
		return nil
	})

	_ = g.Wait()
	if sslStatus != "" {
		info.SSLStatus = sslStatus
	}

	if info != model.UnknownDomainInfo() {
		if err := cache.SetJSON(c.cache, key, info, 0); err != nil {
			c.logger.Debug("cache intel failed", "host", host, "error", err)
		}
	}
	return info
}

// lookupWhois queries WHOIS for domain, stepping up to the parent domain
// when a subdomain has no record
func (c *Collector) lookupWhois(ctx context.Context, domain string) (WhoisFacts, error) {
	client := whois.NewClient().SetTimeout(c.timeout)

	for {
		raw, err := runWithContext(ctx, func() (string, error) { return client.Whois(domain) })
		if err != nil {
			return WhoisFacts{}, fmt.Errorf("whois %s: %w", domain, err)
		}

		facts, perr := ParseWhois(raw)
		if perr == nil {
			return facts, nil
		}

		parts := strings.Split(domain, ".")
		if len(parts) <= 2 {
			return WhoisFacts{}, fmt.Errorf("parse whois %s: %w", domain, perr)
		}
		domain = strings.Join(parts[1:], ".")
	}
}

// ParseWhois extracts creation date, registrar and registrant country
func ParseWhois(raw string) (WhoisFacts, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return WhoisFacts{}, err
	}
	if info.Domain == nil {
		return WhoisFacts{}, errors.New("no domain section")
	}

	var facts WhoisFacts
	facts.Created = parseDate(info.Domain.CreatedDate)
	if info.Registrar != nil {
		facts.Registrar = strings.TrimSpace(info.Registrar.Name)
	}
	if info.Registrant != nil {
		facts.Country = strings.TrimSpace(info.Registrant.Country)
	}
	return facts, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// formatAge renders a registration age in days or years
func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days < 0:
		return model.Unknown
	case days < 365:
		return fmt.Sprintf("%d days", days)
	default:
		years := days / 365
		if years == 1 {
			return "1 year"
		}
		return fmt.Sprintf("%d years", years)
	}
}

// probeTLS dials host:443 and reports the certificate status
func probeTLS(ctx context.Context, host string) (string, error) {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 5 * time.Second},
		Config:    &tls.Config{ServerName: host},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return certFailure(err), err
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return "No certificate", nil
	}
	return certStatus(certs[0].NotAfter, time.Now()), nil
}

func certStatus(notAfter, now time.Time) string {
	days := int(notAfter.Sub(now).Hours() / 24)
	if days < 0 {
		return "Expired"
	}
	return fmt.Sprintf("Valid (expires in %d days)", days)
}

// certFailure classifies a failed handshake
func certFailure(err error) string {
	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError

	switch {
	case errors.As(err, &hostErr):
		return "Invalid (hostname mismatch)"
	case errors.As(err, &invalidErr):
		if invalidErr.Reason == x509.Expired {
			return "Expired"
		}
		return "Invalid"
	case errors.As(err, &unknownAuth):
		return "Invalid (untrusted issuer)"
	case errors.As(err, &certErr):
		return "Invalid"
	default:
		return "No HTTPS"
	}
}

// runWithContext runs a blocking call that has no context support
func runWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := fn()
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		return r.s, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
