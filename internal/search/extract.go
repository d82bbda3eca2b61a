package search

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildQuery assembles the search query for one founder. The exclusion keeps
// link-shortener hits for the same domain out of the organic results.
func BuildQuery(firstName, lastName, company, domain, exclude string) string {
	q := fmt.Sprintf("site:%s (%s) (%s) (%s)",
		domain,
		strings.TrimSpace(firstName),
		strings.TrimSpace(lastName),
		strings.TrimSpace(company),
	)
	if strings.TrimSpace(exclude) != "" {
		q += " -site:" + strings.TrimSpace(exclude)
	}
	return q
}

// ExtractLinks filters the payload's organic results to links on the target
// domain. Returns nil for a missing/empty payload or when nothing matches.
func ExtractLinks(p *Payload, domain string) []string {
	if p.Empty() {
		return nil
	}
	var out []string
	for _, r := range p.Organic {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		if hostMatches(link, domain) {
			out = append(out, link)
		}
	}
	return out
}

// PickCanonicalProfile returns the first link whose path is a bare profile
// root: exactly one non-empty path segment and no query parameters. Sub-page
// links (status pages, media tabs) never qualify. Returns "" if none do.
func PickCanonicalProfile(links []string) string {
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if u.RawQuery != "" {
			continue
		}
		if len(pathSegments(u.Path)) == 1 {
			return link
		}
	}
	return ""
}

// ExtractHandle returns the single path segment following the domain, or ""
// when the URL is not a bare profile link on that domain.
func ExtractHandle(rawURL, domain string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !hostMatches(rawURL, domain) {
		return ""
	}
	segs := pathSegments(u.Path)
	if len(segs) != 1 {
		return ""
	}
	return segs[0]
}

func hostMatches(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimSpace(u.Host))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || host == "www."+domain
}

func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if strings.TrimSpace(s) != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
