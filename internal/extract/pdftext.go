package extract

import (
	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// pdfWindow is how many runes around an organization match are scanned
// for contact details.
const pdfWindow = 150

// PDFText extracts entities from the plain text of PDF brochures, the
// common publishing format for municipal activity guides.
type PDFText struct{}

// Method implements Extractor.
func (PDFText) Method() activity.Method { return activity.MethodPDFText }

// Extract implements Extractor.
func (p PDFText) Extract(doc *fetch.Document) []activity.Entity {
	if doc.Kind != fetch.KindPDF || doc.Text == "" {
		return nil
	}
	text := normalizeSpace(doc.Text)
	if isAdultOnly(text) {
		return nil
	}

	runes := []rune(text)
	seen := make(map[string]struct{})
	var entities []activity.Entity
	for _, loc := range orgNameRe.FindAllStringIndex(text, -1) {
		rawName := normalizeSpace(text[loc[0]:loc[1]])
		name := StripOrgKeyword(rawName)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		// Contact details follow the name in brochure layouts, so the
		// scan only looks forward. The context keeps both sides.
		after := runeAfter(runes, text, loc[1])
		e := activity.Entity{
			Name:    name,
			Email:   firstMatch(emailRe, after),
			Phone:   firstMatch(phoneRe, after),
			Address: firstMatch(addressRe, after),
			Context: runeWindow(runes, text, loc[0], loc[1]),
			Method:  activity.MethodPDFText,
		}
		e.Website = inferWebsiteFromEmail(e.Email)
		e.Confidence = Completeness(e)
		entities = append(entities, e)
	}
	return entities
}

// runeWindow expands a byte range by pdfWindow runes on each side.
func runeWindow(runes []rune, text string, startByte, endByte int) string {
	start := len([]rune(text[:startByte]))
	end := len([]rune(text[:endByte]))
	lo := start - pdfWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + pdfWindow
	if hi > len(runes) {
		hi = len(runes)
	}
	return string(runes[lo:hi])
}

// runeAfter returns up to pdfWindow runes following a byte offset.
func runeAfter(runes []rune, text string, fromByte int) string {
	start := len([]rune(text[:fromByte]))
	hi := start + pdfWindow
	if hi > len(runes) {
		hi = len(runes)
	}
	return string(runes[start:hi])
}
