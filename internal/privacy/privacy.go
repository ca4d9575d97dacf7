// Package privacy scrubs credentials and endpoints from messages before they
// leave the process in logs, notifications or error reports.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Any scheme, so shoutrrr service URLs and broker URLs are caught too
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)

	tokenParamPattern = regexp.MustCompile(`(?i)\b(access_token|token|password|secret)=[^&\s]+`)
)

// ScrubMessage replaces URLs and bearer tokens in message with anonymized
// placeholders.
func ScrubMessage(message string) string {
	message = bearerPattern.ReplaceAllString(message, "Bearer [REDACTED]")
	message = tokenParamPattern.ReplaceAllString(message, "$1=[REDACTED]")
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL converts a URL into a stable hash that keeps the scheme and the
// kind of host but drops credentials, the host name and the path.
// URLs of the same shape anonymize to the same value.
func AnonymizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if parsed.Scheme != "" {
		parts = append(parts, parsed.Scheme)
	}
	if host := parsed.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := parsed.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		parts = append(parts, anonymizePath(parsed.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s://url-%x", parsed.Scheme, hash[:12])
}

// RedactToken keeps the last four characters of a secret for correlation.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "[REDACTED]"
	}
	return "[REDACTED]" + token[len(token)-4:]
}

// categorizeHost reduces a host to localhost, private-ip, public-ip or its TLD
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// anonymizePath keeps the depth of a path and hashes each segment
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segments []string
	for segment := range strings.SplitSeq(path, "/") {
		if segment == "" {
			continue
		}
		if isNumeric(segment) {
			segments = append(segments, "numeric")
			continue
		}
		hash := sha256.Sum256([]byte(segment))
		segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
