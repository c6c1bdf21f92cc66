// Package extract turns fetched documents into candidate entities using
// structured data, heuristic text scanning, and PDF text windows.
package extract

import (
	"regexp"
	"strings"
)

// Organization keywords recognized in names and headings. The order does
// not matter; matching is case-insensitive.
var orgKeywords = []string{
	"association",
	"club",
	"cercle",
	"centre",
	"école",
	"académie",
	"amicale",
	"fédération",
	"ligue",
	"société",
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// French phone numbers, national or international form.
	phoneRe = regexp.MustCompile(`(?:\+33|0)[1-9](?:[.\s-]?\d{2}){4}`)

	// Street addresses: a number followed by a street type and name.
	addressRe = regexp.MustCompile(`(?i)\b\d{1,4}(?:\s?(?:bis|ter))?,?\s+(?:rue|avenue|boulevard|place|allée|chemin|impasse|passage)\s+[^,;<>\n]{2,60}`)

	// Organization-style names: keyword followed by proper-noun words.
	// Case-insensitivity is scoped to the keyword and articles; the name
	// words themselves must be capitalized or the match swallows the
	// surrounding sentence.
	orgNameRe = regexp.MustCompile(`\b(?i:association|club|cercle|centre|école|académie|amicale|fédération|ligue|société)\s+(?:(?i:de\s|d'|du\s|des\s|la\s|le\s|les\s))?[A-ZÀ-Þ][\pL'’-]*(?:\s+(?:(?i:de\s|d'|du\s|des\s|la\s|le\s|les\s))?[A-ZÀ-Þ0-9][\pL0-9'’-]*)*`)
)

// newsletterTerms mark pages whose dominant topic is a subscription form;
// heuristic extraction discards them outright.
var newsletterTerms = []string{
	"newsletter",
	"lettre d'information",
	"abonnez-vous",
}

// youthKeywords are the activity/youth/sport/culture signals required to
// accept a name-only match and counted during authority validation.
var youthKeywords = []string{
	"enfant", "enfants", "jeune", "jeunes", "jeunesse",
	"ado", "ados", "adolescent", "famille", "scolaire", "périscolaire",
	"sport", "sportif", "sportive", "danse", "musique", "théâtre", "theatre",
	"loisir", "loisirs", "culture", "culturel", "atelier", "ateliers",
	"stage", "stages", "activité", "activités", "éveil", "initiation",
}

// adultOnlyTerms exclude pages that explicitly bar children.
var adultOnlyTerms = []string{
	"réservé aux adultes",
	"adultes uniquement",
	"interdit aux mineurs",
}

var freemailDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"yahoo.fr":    {},
	"hotmail.com": {},
	"hotmail.fr":  {},
	"outlook.com": {},
	"outlook.fr":  {},
	"orange.fr":   {},
	"free.fr":     {},
	"wanadoo.fr":  {},
	"laposte.net": {},
	"sfr.fr":      {},
}

var socialDomains = []string{
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"linkedin.com",
	"tiktok.com",
}

// HasOrgKeyword reports whether the text names an organizational form.
func HasOrgKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range orgKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// HasYouthKeyword reports whether the text carries any activity, youth,
// sport, or culture signal.
func HasYouthKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range youthKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// StripOrgKeyword removes a leading organizational keyword and any
// following article, so "Association Judo Paris" becomes "Judo Paris".
func StripOrgKeyword(name string) string {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)
	for _, kw := range orgKeywords {
		if !strings.HasPrefix(lower, kw) {
			continue
		}
		// The keyword must be a whole word: "Clubhouse" is not "Club".
		if len(trimmed) > len(kw) && trimmed[len(kw)] != ' ' {
			continue
		}
		rest := strings.TrimSpace(trimmed[len(kw):])
		for _, article := range []string{"de la ", "de l'", "des ", "du ", "de ", "d'", "la ", "le ", "les "} {
			restLower := strings.ToLower(rest)
			if strings.HasPrefix(restLower, article) {
				rest = strings.TrimSpace(rest[len(article):])
				break
			}
		}
		if rest != "" {
			return rest
		}
		return trimmed
	}
	return trimmed
}

func isNewsletterText(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range newsletterTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func isAdultOnly(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range adultOnlyTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func firstMatch(re *regexp.Regexp, text string) string {
	return strings.TrimSpace(re.FindString(text))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
