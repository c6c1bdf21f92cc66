package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

func sampleRecord(id string) activity.Record {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	return activity.NewRecord(id, activity.Entity{
		Name:        "Judo Paris",
		Description: "Cours de judo enfants",
		Email:       "contact@judoparis.fr",
		Phone:       "01 42 55 66 77",
		Website:     "https://judoparis.fr",
		Address:     "12 rue des Pyrénées, 75020 Paris",
		Categories:  []string{"sport"},
		AgeRange:    &activity.AgeRange{Min: 6, Max: 12},
		Zone:        "20e",
		ExtractedAt: now,
	}, now)
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := sampleRecord("rec-1")
	require.NoError(t, m.Create(ctx, rec))

	got, err := m.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	rec.ApprovalState = "approved"
	require.NoError(t, m.Update(ctx, rec))
	got, err = m.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.ApprovalState)

	require.NoError(t, m.Create(ctx, sampleRecord("rec-0")))
	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rec-0", list[0].ID, "listing is ordered by id")

	require.NoError(t, m.Remove(ctx, "rec-1"))
	assert.ErrorIs(t, m.Remove(ctx, "rec-1"), ErrNotFound)
	assert.ErrorIs(t, m.Update(ctx, rec), ErrNotFound)
}

func TestRejectionListMatching(t *testing.T) {
	r := NewRejectionList()
	r.Add("Judo Paris", "https://www.judoparis.fr/")

	assert.True(t, r.Rejected(activity.Entity{Name: "judo paris"}))
	assert.True(t, r.Rejected(activity.Entity{Name: "  JUDO PARIS  "}))
	assert.True(t, r.Rejected(activity.Entity{Name: "Autre", Website: "http://judoparis.fr"}))
	assert.True(t, r.Rejected(activity.Entity{Name: "Autre", Website: "https://judoparis.fr/"}))
	assert.False(t, r.Rejected(activity.Entity{Name: "Escrime Bastille", Website: "https://escrime-bastille.fr"}))
}

func TestRejectionListRejectedURL(t *testing.T) {
	r := NewRejectionList()
	r.Add("Judo Paris", "https://www.judoparis.fr/")

	assert.True(t, r.RejectedURL("http://judoparis.fr"))
	assert.True(t, r.RejectedURL("https://judoparis.fr/"))
	assert.False(t, r.RejectedURL("https://judoparis.fr/inscriptions"))
	assert.False(t, r.RejectedURL("https://escrime-bastille.fr"))
	assert.False(t, r.RejectedURL(""))
}

func TestRejectionListLoad(t *testing.T) {
	r := NewRejectionList()
	r.Add("Old Entry", "")
	r.Load([]string{"Judo Paris"}, []string{"https://escrime-bastille.fr/"})

	assert.False(t, r.Rejected(activity.Entity{Name: "Old Entry"}), "load replaces prior contents")
	assert.True(t, r.Rejected(activity.Entity{Name: "Judo Paris"}))
	assert.True(t, r.Rejected(activity.Entity{Website: "http://www.escrime-bastille.fr"}))
}

func TestPostgresCreateAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, "")
	rec := sampleRecord("rec-1")

	mock.ExpectExec("INSERT INTO activities").
		WithArgs(recordArgs(rec)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, p.Create(context.Background(), rec))

	mock.ExpectQuery("SELECT (.+) FROM activities WHERE id").
		WithArgs("rec-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title_en", "title_fr", "description_en", "description_fr",
			"categories", "age_min", "age_max", "price_amount", "price_currency",
			"neighborhood", "address", "contact_email", "contact_phone", "website",
			"images", "approval_status", "crawled_at", "created_at", "updated_at",
		}).AddRow(recordArgs(rec)...))

	got, err := p.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, "activities")

	mock.ExpectQuery("SELECT (.+) FROM activities WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = p.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, "activities")
	rec := sampleRecord("rec-9")

	mock.ExpectExec("UPDATE activities SET").
		WithArgs(recordArgs(rec)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, p.Update(context.Background(), rec), ErrNotFound)
}

func TestPostgresRemove(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, "activities")

	mock.ExpectExec("DELETE FROM activities").
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	assert.NoError(t, p.Remove(context.Background(), "rec-1"))

	mock.ExpectExec("DELETE FROM activities").
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, p.Remove(context.Background(), "rec-1"), ErrNotFound)
}

func TestMemoryRejectionRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AddRejection(ctx, "Club Fantôme", "https://fantome.fr"))
	require.NoError(t, m.AddRejection(ctx, "", "spam-annuaire.fr"))

	names, websites, err := m.Rejections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Club Fantôme"}, names)
	assert.Equal(t, []string{"https://fantome.fr", "spam-annuaire.fr"}, websites)
}

func TestPostgresRejections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, "")

	mock.ExpectExec("INSERT INTO rejections").
		WithArgs("Club Fantôme", "https://fantome.fr").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, p.AddRejection(context.Background(), "Club Fantôme", "https://fantome.fr"))

	mock.ExpectQuery("SELECT name, website FROM rejections").
		WillReturnRows(pgxmock.NewRows([]string{"name", "website"}).
			AddRow("Club Fantôme", "https://fantome.fr").
			AddRow("", "spam-annuaire.fr"))

	names, websites, err := p.Rejections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Club Fantôme"}, names)
	assert.Equal(t, []string{"https://fantome.fr", "spam-annuaire.fr"}, websites)

	assert.NoError(t, mock.ExpectationsWereMet())
}
