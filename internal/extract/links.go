package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstExternalLink returns the first absolute http(s) link pointing
// off the page's own host, skipping social networks.
func firstExternalLink(tree *goquery.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	var found string
	tree.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return true
		}
		host := strings.ToLower(u.Hostname())
		if host == "" || host == strings.ToLower(base.Hostname()) {
			return true
		}
		if isSocialHost(host) {
			return true
		}
		found = u.String()
		return false
	})
	return found
}

func isSocialHost(host string) bool {
	for _, s := range socialDomains {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// inferWebsiteFromEmail guesses a website from an email's domain when
// the page offers no external link. Free mail providers carry no
// organization signal and are skipped.
func inferWebsiteFromEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	if domain == "" {
		return ""
	}
	if _, free := freemailDomains[domain]; free {
		return ""
	}
	return "https://" + domain
}
