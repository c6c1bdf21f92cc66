package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// nameSelectors are class-based fallbacks for sites that mark the
// organization name without semantic headings.
var nameSelectors = []string{
	".org-name",
	".organization-name",
	".association-name",
	".structure-name",
	".entity-title",
}

// Heuristic extracts entities from unstructured pages using regex and
// keyword scanning.
type Heuristic struct{}

// Method implements Extractor.
func (Heuristic) Method() activity.Method { return activity.MethodHeuristic }

// Extract implements Extractor.
func (h Heuristic) Extract(doc *fetch.Document) []activity.Entity {
	if doc.HTML == nil {
		return nil
	}
	title := normalizeSpace(doc.HTML.Find("title").Text())
	bodyText := normalizeSpace(doc.HTML.Find("body").Text())

	// Newsletter and subscription pages are noise, whatever else they
	// mention.
	if isNewsletterText(title) || isNewsletterText(doc.URL) {
		return nil
	}
	if isNewsletterText(bodyText) && !HasYouthKeyword(bodyText) {
		return nil
	}
	if isAdultOnly(bodyText) {
		return nil
	}

	rawName := resolveName(doc.HTML)
	if rawName == "" {
		return nil
	}

	email := findEmail(doc.HTML, bodyText)
	phone := firstMatch(phoneRe, bodyText)
	address := firstMatch(addressRe, bodyText)

	// A bare name with no contact details is only believable on a page
	// that actually talks about activities.
	if email == "" && phone == "" && address == "" && !HasYouthKeyword(bodyText) {
		return nil
	}

	website := firstExternalLink(doc.HTML, doc.URL)
	if website == "" {
		website = inferWebsiteFromEmail(email)
	}

	e := activity.Entity{
		Name:        StripOrgKeyword(rawName),
		Description: findDescription(doc.HTML),
		Email:       email,
		Phone:       phone,
		Address:     address,
		Website:     website,
		Images:      findImages(doc.HTML),
		Context:     contextWindow(rawName, bodyText),
		Method:      activity.MethodHeuristic,
	}
	e.Confidence = Completeness(e)
	return []activity.Entity{e}
}

// resolveName walks the resolution ladder: keyword heading, first
// substantial heading, social title, page title, class selectors, then
// an organization-style pattern in the body text.
func resolveName(tree *goquery.Document) string {
	var keywordHeading, firstHeading string
	tree.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeSpace(s.Text())
		if text == "" {
			return true
		}
		if keywordHeading == "" && HasOrgKeyword(text) {
			keywordHeading = text
			return false
		}
		if firstHeading == "" && len([]rune(text)) >= 6 {
			firstHeading = text
		}
		return true
	})
	if keywordHeading != "" {
		return keywordHeading
	}
	if firstHeading != "" {
		return firstHeading
	}
	if og, ok := tree.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if text := normalizeSpace(og); text != "" {
			return text
		}
	}
	if title := normalizeSpace(tree.Find("title").Text()); title != "" {
		return title
	}
	for _, sel := range nameSelectors {
		if text := normalizeSpace(tree.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return firstMatch(orgNameRe, normalizeSpace(tree.Find("body").Text()))
}

// findEmail prefers mailto links over body-text scanning.
func findEmail(tree *goquery.Document, bodyText string) string {
	var email string
	tree.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if emailRe.MatchString(addr) {
			email = addr
			return false
		}
		return true
	})
	if email != "" {
		return email
	}
	return firstMatch(emailRe, bodyText)
}

func findDescription(tree *goquery.Document) string {
	if meta, ok := tree.Find(`meta[name="description"]`).Attr("content"); ok {
		if text := normalizeSpace(meta); text != "" {
			return text
		}
	}
	var desc string
	tree.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeSpace(s.Text())
		if len([]rune(text)) >= 80 {
			desc = text
			return false
		}
		return true
	})
	return desc
}

func findImages(tree *goquery.Document) []string {
	var images []string
	if og, ok := tree.Find(`meta[property="og:image"]`).Attr("content"); ok {
		if img := strings.TrimSpace(og); img != "" {
			images = append(images, img)
		}
	}
	return images
}

// contextWindow keeps the raw name plus enough body text for the
// authority validator to find statute, facility, and youth signals.
func contextWindow(rawName, bodyText string) string {
	const window = 600
	runes := []rune(bodyText)
	if len(runes) > window {
		bodyText = string(runes[:window])
	}
	return normalizeSpace(rawName + " " + bodyText)
}
