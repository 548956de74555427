package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"NewsLens/internal/domain"
)

// trackingParams are query parameters injected by publishers and ad
// platforms. They change between syndication channels without changing
// the article, so canonicalization drops them.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"igshid": true,
	"mc_cid": true,
	"mc_eid": true,
}

// Fingerprint derives the stable dedup identity for a candidate. The
// canonicalized link wins when present, then the GUID, then a hash of
// the normalized text. Each source is hashed under its own tag so a
// GUID can never collide with a link of the same bytes.
func Fingerprint(c domain.Candidate) string {
	if canonical := CanonicalLink(c.Link); canonical != "" {
		return fingerprintOf("link", canonical)
	}
	if guid := strings.TrimSpace(c.GUID); guid != "" {
		return fingerprintOf("guid", guid)
	}
	return fingerprintOf("content", normalizeContent(c.Title, c.Body))
}

// CanonicalLink normalizes an article URL so that syndication variants
// of the same page produce identical strings: scheme and host are
// lowercased, default ports and fragments dropped, tracking parameters
// removed, remaining query sorted and the trailing slash trimmed.
// Returns "" for anything that is not an absolute http(s) URL.
func CanonicalLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}

	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")

	query := u.Query()
	for key := range query {
		if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
		}
	}

	canonical := scheme + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		canonical += "?" + encoded
	}
	return canonical
}

func normalizeContent(title, body string) string {
	return strings.ToLower(CollapseWhitespace(title)) + "\n" + strings.ToLower(CollapseWhitespace(body))
}

func fingerprintOf(tag, value string) string {
	sum := sha256.Sum256([]byte(tag + "\n" + value))
	return hex.EncodeToString(sum[:])
}
