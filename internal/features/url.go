package features

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// credentialWords appear in URLs that try to look like sign-in flows
	credentialWords = []string{"login", "verify", "secure", "update", "account", "bank", "confirm", "signin", "password"}

	ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
)

// Hostname returns the lower-cased host of rawURL without port, or "" if it
// cannot be parsed. Scheme-less input is treated as http.
func Hostname(rawURL string) string {
	u := parseLoose(rawURL)
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func parseLoose(rawURL string) *url.URL {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

// IsIPHost reports whether host is an IPv4 or IPv6 literal
func IsIPHost(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// subdomainCount approximates the number of labels left of the registrable domain
func subdomainCount(host string) int {
	if host == "" || IsIPHost(host) {
		return 0
	}
	n := strings.Count(host, ".") - 1
	if n < 0 {
		return 0
	}
	return n
}

// ExtractURL computes lexical features of the URL string
func ExtractURL(rawURL string) Record {
	lowerURL := strings.ToLower(rawURL)
	host := Hostname(rawURL)

	path := ""
	if u := parseLoose(rawURL); u != nil {
		path = u.Path
	}

	digits := 0
	for _, r := range rawURL {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	hasLoginWord := false
	for _, w := range credentialWords {
		if strings.Contains(lowerURL, w) {
			hasLoginWord = true
			break
		}
	}

	return Record{
		"url_length":      float64(len(rawURL)),
		"count_dots":      float64(strings.Count(rawURL, ".")),
		"count_hyphen":    float64(strings.Count(rawURL, "-")),
		"count_slash":     float64(strings.Count(rawURL, "/")),
		"count_question":  float64(strings.Count(rawURL, "?")),
		"count_equal":     float64(strings.Count(rawURL, "=")),
		"has_at_symbol":   boolFeature(strings.Contains(rawURL, "@")),
		"has_https":       boolFeature(strings.HasPrefix(lowerURL, "https")),
		"has_login_word":  boolFeature(hasLoginWord),
		"subdomain_count": float64(subdomainCount(host)),
		"is_ip_address":   boolFeature(IsIPHost(host) || ipv4Pattern.MatchString(host)),
		"path_length":     float64(len(path)),
		"digit_count":     float64(digits),
	}
}
