package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/newscli/internal/sources"
)

// Summary is one article as listed in a feed. Optional fields are pointers:
// nil means the feed did not carry the value.
type Summary struct {
	ID          string
	Title       string
	Link        string
	Published   *time.Time
	Author      *string
	SummaryText string

	// ContentHTML is the entry's full content element, when the feed has one.
	ContentHTML *string

	// Source is a copy of the owning source, not a live reference.
	Source sources.Source
}

// trackingParams are query keys stripped before hashing a link.
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "dclid": true, "msclkid": true,
	"mc_cid": true, "mc_eid": true, "igshid": true, "yclid": true,
	"ref": true, "ref_src": true, "cmpid": true, "ocid": true,
	"smid": true, "soc_src": true, "soc_trk": true, "at_medium": true,
	"at_campaign": true, "_ga": true, "guccounter": true,
}

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "utm_") || trackingParams[k]
}

// CanonicalLink reduces a link to scheme+host+path plus any non-tracking
// query parameters in sorted order. Fragments and default ports are dropped
// and scheme and host are lowercased. Unparseable links are returned trimmed.
func CanonicalLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}

	path := u.EscapedPath()
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "/" {
		path = ""
	}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if !isTrackingParam(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i == 0 && j == 0 {
				b.WriteByte('?')
			} else {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// ArticleID derives a stable article id from the canonical form of link.
func ArticleID(link string) string {
	return hashString(CanonicalLink(link))
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
