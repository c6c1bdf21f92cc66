package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApprovalPending is the approval status assigned to every crawled record
// until a human reviews it.
const ApprovalPending = "pending"

// DefaultCurrency is applied when a bare numeric price is coerced to Money.
const DefaultCurrency = "EUR"

// Record is the persisted form of an accepted entity. Its column order is a
// published schema: consumers index rows by position, so Columns and Row
// must never be reordered.
type Record struct {
	ID            string        `json:"id"`
	Title         LocalizedText `json:"title"`
	Description   LocalizedText `json:"description"`
	Categories    []string      `json:"categories"`
	AgeMin        int           `json:"age_min"`
	AgeMax        int           `json:"age_max"`
	PriceAmount   float64       `json:"price_amount"`
	PriceCurrency string        `json:"price_currency"`
	Neighborhood  string        `json:"neighborhood"`
	Address       string        `json:"address"`
	ContactEmail  string        `json:"contact_email"`
	ContactPhone  string        `json:"contact_phone"`
	Website       string        `json:"website"`
	Images        []string      `json:"images"`
	ApprovalState string        `json:"approval_status"`
	CrawledAt     time.Time     `json:"crawled_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Columns lists the published column order for persisted crawl output.
var Columns = []string{
	"id",
	"title_en",
	"title_fr",
	"description_en",
	"description_fr",
	"categories",
	"age_min",
	"age_max",
	"price_amount",
	"price_currency",
	"neighborhood",
	"address",
	"contact_email",
	"contact_phone",
	"website",
	"images",
	"approval_status",
	"crawled_at",
	"created_at",
	"updated_at",
}

// NewRecord converts an accepted entity into its persisted form.
func NewRecord(id string, e Entity, now time.Time) Record {
	rec := Record{
		ID:            id,
		Title:         Bilingual(e.Name),
		Description:   Bilingual(e.Description),
		Categories:    append([]string(nil), e.Categories...),
		Neighborhood:  e.Zone,
		Address:       e.Address,
		ContactEmail:  e.Email,
		ContactPhone:  e.Phone,
		Website:       e.Website,
		Images:        append([]string(nil), e.Images...),
		ApprovalState: ApprovalPending,
		CrawledAt:     e.ExtractedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.AgeRange != nil {
		rec.AgeMin = e.AgeRange.Min
		rec.AgeMax = e.AgeRange.Max
	}
	if e.Price != nil {
		rec.PriceAmount = e.Price.Amount
		rec.PriceCurrency = e.Price.Currency
	}
	return rec
}

// Row serializes the record as one sheet row in the published column order.
func (r Record) Row() []string {
	return []string{
		r.ID,
		r.Title.EN,
		r.Title.FR,
		r.Description.EN,
		r.Description.FR,
		strings.Join(r.Categories, ","),
		strconv.Itoa(r.AgeMin),
		strconv.Itoa(r.AgeMax),
		strconv.FormatFloat(r.PriceAmount, 'f', -1, 64),
		r.PriceCurrency,
		r.Neighborhood,
		r.Address,
		r.ContactEmail,
		r.ContactPhone,
		r.Website,
		strings.Join(r.Images, ","),
		r.ApprovalState,
		formatTime(r.CrawledAt),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}
}

// RecordFromRow parses one sheet row back into a Record.
func RecordFromRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, fmt.Errorf("row has %d columns, want %d", len(row), len(Columns))
	}
	ageMin, err := strconv.Atoi(row[6])
	if err != nil {
		return Record{}, fmt.Errorf("parse age_min: %w", err)
	}
	ageMax, err := strconv.Atoi(row[7])
	if err != nil {
		return Record{}, fmt.Errorf("parse age_max: %w", err)
	}
	amount, err := strconv.ParseFloat(row[8], 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse price_amount: %w", err)
	}
	crawledAt, err := parseTime(row[17])
	if err != nil {
		return Record{}, err
	}
	createdAt, err := parseTime(row[18])
	if err != nil {
		return Record{}, err
	}
	updatedAt, err := parseTime(row[19])
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:            row[0],
		Title:         LocalizedText{EN: row[1], FR: row[2]},
		Description:   LocalizedText{EN: row[3], FR: row[4]},
		Categories:    splitList(row[5]),
		AgeMin:        ageMin,
		AgeMax:        ageMax,
		PriceAmount:   amount,
		PriceCurrency: row[9],
		Neighborhood:  row[10],
		Address:       row[11],
		ContactEmail:  row[12],
		ContactPhone:  row[13],
		Website:       row[14],
		Images:        splitList(row[15]),
		ApprovalState: row[16],
		CrawledAt:     crawledAt,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
