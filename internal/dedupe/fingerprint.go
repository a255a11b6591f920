package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Tracking parameters stripped before fingerprinting. Two feed entries that
// differ only in campaign decoration are the same article.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"igshid":   true,
	"mc_cid":   true,
	"mc_eid":   true,
	"ref":      true,
	"referrer": true,
	"source":   true,
}

func isTrackingParam(name string) bool {
	if strings.HasPrefix(strings.ToLower(name), "utm_") {
		return true
	}
	return trackingParams[strings.ToLower(name)]
}

// CanonicalURL normalizes a candidate URL into its canonical dedup form:
// lowercase scheme and host, no trailing slash, no fragment, tracking query
// parameters removed and the rest sorted for stability.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	u.Path = strings.TrimRight(u.Path, "/")

	q := u.Query()
	kept := url.Values{}
	for name, vals := range q {
		if isTrackingParam(name) {
			continue
		}
		for _, v := range vals {
			kept.Add(name, v)
		}
	}
	if len(kept) == 0 {
		u.RawQuery = ""
	} else {
		names := make([]string, 0, len(kept))
		for name := range kept {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		for _, name := range names {
			for _, v := range kept[name] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(name))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return u.String(), nil
}

// Fingerprint derives the stable dedup key for a candidate URL.
func Fingerprint(rawURL string) (string, error) {
	canonical, err := CanonicalURL(rawURL)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}
