package enrich

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "loisirs"

// categoryKeywords maps each published category to the French terms
// that imply it. An entity can land in several categories.
var categoryKeywords = map[string][]string{
	"sport": {
		"sport", "judo", "karaté", "escrime", "foot", "football", "basket",
		"natation", "gymnastique", "danse", "capoeira", "tennis", "escalade",
		"athlétisme", "rugby", "boxe",
	},
	"musique": {
		"musique", "musical", "piano", "guitare", "violon", "chant", "chorale",
		"solfège", "orchestre", "batterie",
	},
	"art": {
		"art", "dessin", "peinture", "sculpture", "poterie", "céramique",
		"théâtre", "theatre", "cirque", "photographie", "cinéma",
	},
	"sciences": {
		"science", "sciences", "robotique", "programmation", "informatique",
		"astronomie", "chimie", "mathématiques", "échecs",
	},
	"langues": {
		"langue", "langues", "anglais", "espagnol", "allemand", "italien",
		"chinois", "bilingue",
	},
	"culture": {
		"culture", "culturel", "patrimoine", "musée", "lecture", "bibliothèque",
		"histoire", "conte",
	},
	"nature": {
		"nature", "jardin", "jardinage", "environnement", "écologie",
		"potager", "ferme",
	},
}

// categoryOrder keeps output deterministic.
var categoryOrder = []string{
	"sport", "musique", "art", "sciences", "langues", "culture", "nature",
}

// Categorize maps free text onto the category taxonomy. It always
// returns at least one category.
func Categorize(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if containsWord(lower, kw) {
				out = append(out, cat)
				break
			}
		}
	}
	if len(out) == 0 {
		out = []string{DefaultCategory}
	}
	return out
}

// containsWord matches a keyword only at a word start, so "art" hits
// "artistique" but not "partagé". Plural and derived suffixes still
// match. regexp \b cannot express this for accented initials.
func containsWord(lower, kw string) bool {
	for from := 0; ; {
		idx := strings.Index(lower[from:], kw)
		if idx < 0 {
			return false
		}
		idx += from
		if idx == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(lower[:idx])
		if !unicode.IsLetter(prev) {
			return true
		}
		from = idx + 1
	}
}
