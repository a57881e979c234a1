// Package match holds the name, token and domain comparisons shared by the
// source adapters, the grounding validator and the geo grid.
package match

import (
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// Fold lowercases s, strips diacritics and normalizes apostrophes so
// "Café Józef’s" and "cafe jozef's" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(apostrophes.Replace(out))
}

// ContainsFold reports whether needle appears in haystack after folding.
// An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	n := Fold(strings.TrimSpace(needle))
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}

// FirstToken returns the first word of s with surrounding punctuation
// trimmed: "Brooklyn, NY" -> "Brooklyn", "Joe's Pizza" -> "Joe's".
func FirstToken(s string) string {
	for _, f := range strings.Fields(s) {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok != "" {
			return tok
		}
	}
	return ""
}

// Host returns the lowercased host of a URL or bare domain, without port
// or a leading "www.".
func Host(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Domain returns the registrable domain (eTLD+1) of a URL, falling back to
// the bare host for IPs and single-label hosts.
func Domain(raw string) string {
	host := Host(raw)
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// platform describes a registrable domain shared by unrelated businesses.
// segments is how many leading path segments name one tenant; keepHost
// keeps the subdomain in the key (sites.google.com vs maps.google.com).
type platform struct {
	segments int
	keepHost bool
}

var sharedPlatforms = map[string]platform{
	"facebook.com":     {segments: 1},
	"instagram.com":    {segments: 1},
	"tiktok.com":       {segments: 1},
	"x.com":            {segments: 1},
	"twitter.com":      {segments: 1},
	"linktr.ee":        {segments: 1},
	"g.page":           {segments: 1},
	"linkedin.com":     {segments: 2},
	"yelp.com":         {segments: 2},
	"nextdoor.com":     {segments: 2},
	"google.com":       {segments: 2, keepHost: true},
	"wixsite.com":      {segments: 1, keepHost: true},
	"squarespace.com":  {keepHost: true},
	"wordpress.com":    {keepHost: true},
	"weebly.com":       {keepHost: true},
	"godaddysites.com": {keepHost: true},
	"square.site":      {keepHost: true},
	"business.site":    {keepHost: true},
}

// SiteKey identifies the site a URL belongs to. For most URLs it is the
// registrable domain. On shared platforms it narrows to the tenant:
// "https://www.facebook.com/joespizzabk/about" -> "facebook.com/joespizzabk",
// "https://joes.squarespace.com" -> "joes.squarespace.com". A platform URL
// that names no tenant returns "".
func SiteKey(raw string) string {
	d := Domain(raw)
	p, shared := sharedPlatforms[d]
	if !shared {
		return d
	}
	host := d
	if p.keepHost {
		host = Host(raw)
	}
	if p.segments == 0 {
		if host == d {
			return ""
		}
		return host
	}
	parts := pathSegments(raw)
	if len(parts) < p.segments {
		return ""
	}
	return host + "/" + strings.Join(parts[:p.segments], "/")
}

func pathSegments(raw string) []string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			out = append(out, strings.ToLower(seg))
		}
	}
	return out
}

// URLMatchesDomain reports whether link belongs to the site identified by
// key (see SiteKey): the site keys are equal, or, for plain domains, the
// link text contains the domain. Tenant keys on shared platforms only
// match by site key.
func URLMatchesDomain(link, key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || link == "" {
		return false
	}
	if SiteKey(link) == key {
		return true
	}
	if strings.Contains(key, "/") {
		return false
	}
	if _, shared := sharedPlatforms[Domain(key)]; shared {
		return false
	}
	return strings.Contains(strings.ToLower(link), key)
}

// SameBusiness reports whether candidate names the subject business: the
// folded candidate contains the folded subject name.
func SameBusiness(candidate, subject string) bool {
	return ContainsFold(candidate, subject)
}
