package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

var (
	priceRe = regexp.MustCompile(`(?i)(\d{1,4}(?:[.,]\d{1,2})?)\s*(?:€|euros?)`)
	freeRe  = regexp.MustCompile(`(?i)\b(?:gratuit|gratuite|accès libre)\b`)
)

// ParsePrice scans free text for a yearly or per-session fee. A page
// that says the activity is free yields a zero amount; no mention at
// all yields nil.
func ParsePrice(text string) *activity.Money {
	if m := priceRe.FindStringSubmatch(text); m != nil {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return &activity.Money{Amount: amount, Currency: activity.DefaultCurrency}
		}
	}
	if freeRe.MatchString(text) {
		return &activity.Money{Amount: 0, Currency: activity.DefaultCurrency}
	}
	return nil
}
