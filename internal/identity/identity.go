package identity

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// Tracking query parameters stripped during canonicalization so that
// re-fetching the identical page across runs yields the same id.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"mc_cid":       true,
	"mc_eid":       true,
	"msclkid":      true,
	"ref":          true,
	"referrer":     true,
	"source":       true,
	"campaign":     true,
	"_ga":          true,
}

// CanonicalURL normalizes a listing URL for identity resolution:
// lowercased scheme/host, tracking parameters removed, remaining query
// sorted, fragment dropped, trailing slash trimmed. Unparsable URLs are
// returned trimmed as-is so the record is still tracked, just less stably.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	// Encode emits keys in sorted order, giving a stable query string
	u.RawQuery = q.Encode()

	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}

// ListingID computes the stable dedup key for a listing observation.
// Identity is scoped to one source: the same parcel listed on two platforms
// gets two ids. Cross-source resolution is a known precision gap, left for
// product input rather than a fuzzy-matching guess here.
func ListingID(source, rawURL string) string {
	hash := md5.Sum([]byte(source + ":" + CanonicalURL(rawURL)))
	return hex.EncodeToString(hash[:])
}
