package activity

import (
	"testing"
	"time"
)

func TestRecordRowRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := Record{
		ID:            "rec-1",
		Title:         LocalizedText{EN: "Judo Club", FR: "Judo Club"},
		Description:   LocalizedText{EN: "Judo for kids", FR: "Judo pour enfants"},
		Categories:    []string{"sport"},
		AgeMin:        6,
		AgeMax:        12,
		PriceAmount:   150,
		PriceCurrency: "EUR",
		Neighborhood:  "11e",
		Address:       "12 rue de la Roquette, 75011 Paris",
		ContactEmail:  "contact@judoparis.fr",
		ContactPhone:  "01 42 00 00 00",
		Website:       "https://judoparis.fr",
		Images:        []string{"https://judoparis.fr/a.jpg", "https://judoparis.fr/b.jpg"},
		ApprovalState: ApprovalPending,
		CrawledAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	row := rec.Row()
	if len(row) != len(Columns) {
		t.Fatalf("Row() returned %d columns, want %d", len(row), len(Columns))
	}

	back, err := RecordFromRow(row)
	if err != nil {
		t.Fatalf("RecordFromRow() error = %v", err)
	}
	if back.Title != rec.Title {
		t.Errorf("title round trip = %+v, want %+v", back.Title, rec.Title)
	}
	if back.Description != rec.Description {
		t.Errorf("description round trip = %+v, want %+v", back.Description, rec.Description)
	}
	if len(back.Categories) != 1 || back.Categories[0] != "sport" {
		t.Errorf("categories round trip = %v", back.Categories)
	}
	if back.AgeMin != 6 || back.AgeMax != 12 {
		t.Errorf("age round trip = %d..%d", back.AgeMin, back.AgeMax)
	}
	if back.PriceAmount != 150 || back.PriceCurrency != "EUR" {
		t.Errorf("price round trip = %v %s", back.PriceAmount, back.PriceCurrency)
	}
	if !back.CrawledAt.Equal(rec.CrawledAt) {
		t.Errorf("crawled_at round trip = %v, want %v", back.CrawledAt, rec.CrawledAt)
	}
	if len(back.Images) != 2 {
		t.Errorf("images round trip = %v", back.Images)
	}
}

func TestRecordFromRowRejectsShortRow(t *testing.T) {
	t.Parallel()

	if _, err := RecordFromRow([]string{"only", "three", "cols"}); err == nil {
		t.Fatal("expected error for truncated row")
	}
}

func TestNewRecordDefaults(t *testing.T) {
	t.Parallel()

	e := Entity{
		Name:        "Club de Gym",
		Zone:        "5e",
		ExtractedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	rec := NewRecord("id-9", e, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	if rec.ApprovalState != ApprovalPending {
		t.Errorf("approval = %q, want %q", rec.ApprovalState, ApprovalPending)
	}
	if rec.Title.FR != "Club de Gym" || rec.Title.EN != "Club de Gym" {
		t.Errorf("title = %+v", rec.Title)
	}
	if rec.Neighborhood != "5e" {
		t.Errorf("neighborhood = %q", rec.Neighborhood)
	}
}

func TestSortSeeds(t *testing.T) {
	t.Parallel()

	seeds := []Seed{
		{URL: "https://search.example/a", Priority: 0.6, Source: SourceSearch},
		{URL: "https://annuaire.example", Priority: 0.7, Source: SourceAggregator},
		{URL: "https://query.wikidata.org", Priority: 0.9, Source: SourceRegistry},
		{URL: "https://mairie11.paris.fr", Priority: 0.7, Source: SourceMunicipal},
	}
	SortSeeds(seeds)
	if seeds[0].Source != SourceRegistry {
		t.Errorf("first seed = %+v, want registry", seeds[0])
	}
	if seeds[1].Source != SourceMunicipal {
		t.Errorf("tie at 0.7 should favor municipal, got %+v", seeds[1])
	}
	if seeds[3].Source != SourceSearch {
		t.Errorf("last seed = %+v, want search", seeds[3])
	}
}

func TestEntityCloneIsDeep(t *testing.T) {
	t.Parallel()

	e := Entity{
		Name:       "Cercle d'Escrime",
		Price:      &Money{Amount: 90, Currency: "EUR"},
		AgeRange:   &AgeRange{Min: 8, Max: 14},
		Categories: []string{"sport"},
	}
	c := e.Clone()
	c.Price.Amount = 10
	c.AgeRange.Min = 1
	c.Categories[0] = "musique"
	if e.Price.Amount != 90 || e.AgeRange.Min != 8 || e.Categories[0] != "sport" {
		t.Fatalf("Clone() shares state with original: %+v", e)
	}
}
