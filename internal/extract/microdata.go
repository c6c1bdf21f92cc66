package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// Microdata extracts entities from itemscope/itemprop annotations.
type Microdata struct{}

// Method implements Extractor.
func (Microdata) Method() activity.Method { return activity.MethodMicrodata }

// Extract implements Extractor.
func (Microdata) Extract(doc *fetch.Document) []activity.Entity {
	if doc.HTML == nil {
		return nil
	}
	var out []activity.Entity
	doc.HTML.Find("[itemscope]").Each(func(_ int, scope *goquery.Selection) {
		itemType, _ := scope.Attr("itemtype")
		if !isOrgType(itemType) {
			return
		}
		name := itemProp(scope, "name")
		if name == "" {
			name = itemProp(scope, "legalName")
		}
		if name == "" {
			return
		}
		e := activity.Entity{
			Name:        StripOrgKeyword(normalizeSpace(name)),
			Description: itemProp(scope, "description"),
			Phone:       itemProp(scope, "telephone"),
			Email:       itemProp(scope, "email"),
			Website:     itemPropLink(scope, "url"),
			Address:     microdataAddress(scope),
			Context:     normalizeSpace(name),
			Method:      activity.MethodMicrodata,
		}
		e.Confidence = Completeness(e)
		out = append(out, e)
	})
	return out
}

// itemProp returns the text or content attribute of the first matching
// property inside the scope.
func itemProp(scope *goquery.Selection, prop string) string {
	sel := scope.Find(`[itemprop="` + prop + `"]`).First()
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	return normalizeSpace(sel.Text())
}

// itemPropLink prefers an href over element text for URL properties.
func itemPropLink(scope *goquery.Selection, prop string) string {
	sel := scope.Find(`[itemprop="` + prop + `"]`).First()
	if sel.Length() == 0 {
		return ""
	}
	if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	return normalizeSpace(sel.Text())
}

func microdataAddress(scope *goquery.Selection) string {
	addr := scope.Find(`[itemprop="address"]`).First()
	if addr.Length() == 0 {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, prop := range []string{"streetAddress", "postalCode", "addressLocality"} {
		sel := addr.Find(`[itemprop="` + prop + `"]`).First()
		if sel.Length() > 0 {
			if s := normalizeSpace(sel.Text()); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return normalizeSpace(addr.Text())
}
