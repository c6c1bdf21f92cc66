package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// orgTypes are the schema.org types treated as organizations.
var orgTypes = []string{
	"organization",
	"localbusiness",
	"sportsclub",
	"sportsactivitylocation",
	"ngo",
	"educationalorganization",
	"childcare",
}

// JSONLD extracts entities from embedded linked-data blocks, and from
// whole JSON documents returned by API endpoints.
type JSONLD struct{}

// Method implements Extractor.
func (JSONLD) Method() activity.Method { return activity.MethodSchemaOrg }

// Extract implements Extractor.
func (JSONLD) Extract(doc *fetch.Document) []activity.Entity {
	var out []activity.Entity
	collect := func(payload any) {
		walkNode(payload, func(obj map[string]any) {
			if e, ok := entityFromObject(obj); ok {
				e.Method = activity.MethodSchemaOrg
				e.Confidence = Completeness(e)
				out = append(out, e)
			}
		})
	}

	switch {
	case doc.Kind == fetch.KindJSON:
		collect(doc.JSON)
	case doc.HTML != nil:
		doc.HTML.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
			var payload any
			if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
				return
			}
			collect(payload)
		})
	}
	return out
}

// walkNode visits every object in a nested JSON value, including arrays
// and @graph containers.
func walkNode(node any, visit func(map[string]any)) {
	switch v := node.(type) {
	case map[string]any:
		visit(v)
		for _, child := range v {
			walkNode(child, visit)
		}
	case []any:
		for _, item := range v {
			walkNode(item, visit)
		}
	}
}

// entityFromObject maps schema.org-style properties onto an entity. An
// object qualifies when it declares an organization type, or when it has
// a name plus at least one contact property.
func entityFromObject(obj map[string]any) (activity.Entity, bool) {
	name := stringProp(obj, "name")
	if name == "" {
		name = stringProp(obj, "legalName")
	}
	if name == "" {
		return activity.Entity{}, false
	}

	typed := isOrgType(obj["@type"])
	e := activity.Entity{
		Name:        StripOrgKeyword(normalizeSpace(name)),
		Description: stringProp(obj, "description"),
		Phone:       stringProp(obj, "telephone"),
		Email:       stringProp(obj, "email"),
		Website:     stringProp(obj, "url"),
		Address:     flattenAddress(obj["address"]),
		Context:     normalizeSpace(name),
	}
	if img := stringProp(obj, "image"); img != "" {
		e.Images = []string{img}
	}
	if price := parsePriceRange(stringProp(obj, "priceRange")); price != nil {
		e.Price = price
	}

	hasContact := e.Phone != "" || e.Email != "" || e.Website != "" || e.Address != ""
	if !typed && !hasContact {
		return activity.Entity{}, false
	}
	return e, true
}

func isOrgType(v any) bool {
	check := func(s string) bool {
		lower := strings.ToLower(s)
		for _, t := range orgTypes {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}
	switch t := v.(type) {
	case string:
		return check(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && check(s) {
				return true
			}
		}
	}
	return false
}

// stringProp reads a property that may be a string, a list, or a nested
// object with its own name/url.
func stringProp(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	case map[string]any:
		if s := stringProp(v, "name"); s != "" {
			return s
		}
		return stringProp(v, "url")
	}
	return ""
}

// flattenAddress joins a PostalAddress object into one line.
func flattenAddress(v any) string {
	switch addr := v.(type) {
	case string:
		return normalizeSpace(addr)
	case map[string]any:
		parts := make([]string, 0, 4)
		for _, key := range []string{"streetAddress", "postalCode", "addressLocality", "addressCountry"} {
			if s := stringProp(addr, key); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []any:
		for _, item := range addr {
			if s := flattenAddress(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func parsePriceRange(s string) *activity.Money {
	cleaned := strings.TrimSpace(strings.Trim(s, "€$ "))
	if cleaned == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &activity.Money{Amount: amount, Currency: activity.DefaultCurrency}
}
