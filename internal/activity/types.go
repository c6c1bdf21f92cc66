// Package activity defines the domain types shared across the crawl pipeline.
package activity

import "time"

// Method identifies how an entity was extracted from its source document.
type Method string

// Extraction methods.
const (
	MethodSchemaOrg Method = "schema_org"
	MethodMicrodata Method = "microdata"
	MethodHeuristic Method = "nlp_heuristic"
	MethodPDFText   Method = "pdf_text"
)

// LocalizedText carries a value in both supported locales.
type LocalizedText struct {
	EN string `json:"en"`
	FR string `json:"fr"`
}

// Bilingual builds a LocalizedText with the same value in both locales.
func Bilingual(s string) LocalizedText {
	return LocalizedText{EN: s, FR: s}
}

// Money is a price resolved once at the store boundary.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// AgeRange bounds the audience age in years, inclusive.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validation records the authority and geography signals supporting an
// entity. Valid requires at least two independent conditions.
type Validation struct {
	Score      int      `json:"score"`
	Conditions []string `json:"conditions"`
	Valid      bool     `json:"valid"`
}

// Entity is one observation of an organization from one source document.
// Entities are value objects: pipeline stages return modified copies and
// never mutate an entity shared across goroutines.
type Entity struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Website     string     `json:"website,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Price       *Money     `json:"price,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	AgeRange    *AgeRange  `json:"age_range,omitempty"`
	Images      []string   `json:"images,omitempty"`
	Zone        string     `json:"zone,omitempty"`
	Context     string     `json:"-"`
	SourceURL   string     `json:"source_url"`
	ExtractedAt time.Time  `json:"extracted_at"`
	Method      Method     `json:"method"`
	Confidence  float64    `json:"confidence"`
	Validation  Validation `json:"validation"`
}

// Clone returns a deep copy so callers can derive a new entity safely.
func (e Entity) Clone() Entity {
	out := e
	if e.Price != nil {
		p := *e.Price
		out.Price = &p
	}
	if e.AgeRange != nil {
		r := *e.AgeRange
		out.AgeRange = &r
	}
	out.Categories = append([]string(nil), e.Categories...)
	out.Images = append([]string(nil), e.Images...)
	out.Validation.Conditions = append([]string(nil), e.Validation.Conditions...)
	return out
}

// StageError attributes one recoverable failure to a pipeline stage.
type StageError struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}
