package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "activities"

// DefaultRejectionTable holds reviewer rejections.
const DefaultRejectionTable = "rejections"

// pgxQuerier is the pgxpool surface the store needs; pgxmock implements
// it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is the production RecordStore and RejectionStore.
type Postgres struct {
	pool       pgxQuerier
	table      string
	rejections string
}

// NewPostgres connects a pool to the given DSN.
func NewPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresWithPool(pool, table), nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool pgxQuerier, table string) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	return &Postgres{pool: pool, table: table, rejections: DefaultRejectionTable}
}

const recordColumns = `id, title_en, title_fr, description_en, description_fr,
categories, age_min, age_max, price_amount, price_currency, neighborhood,
address, contact_email, contact_phone, website, images, approval_status,
crawled_at, created_at, updated_at`

func (p *Postgres) List(ctx context.Context) ([]activity.Record, error) {
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, recordColumns, p.table))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []activity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id string) (activity.Record, error) {
	row := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, p.table), id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.Record{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) Create(ctx context.Context, rec activity.Record) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		p.table, recordColumns), recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("create record %s: %w", rec.ID, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, rec activity.Record) error {
	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET
title_en=$2, title_fr=$3, description_en=$4, description_fr=$5, categories=$6,
age_min=$7, age_max=$8, price_amount=$9, price_currency=$10, neighborhood=$11,
address=$12, contact_email=$13, contact_phone=$14, website=$15, images=$16,
approval_status=$17, crawled_at=$18, created_at=$19, updated_at=$20
WHERE id=$1`, p.table), recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table), id)
	if err != nil {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Rejections(ctx context.Context) ([]string, []string, error) {
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT name, website FROM %s`, p.rejections))
	if err != nil {
		return nil, nil, fmt.Errorf("list rejections: %w", err)
	}
	defer rows.Close()

	var names, websites []string
	for rows.Next() {
		var name, website string
		if err := rows.Scan(&name, &website); err != nil {
			return nil, nil, fmt.Errorf("scan rejection: %w", err)
		}
		if name != "" {
			names = append(names, name)
		}
		if website != "" {
			websites = append(websites, website)
		}
	}
	return names, websites, rows.Err()
}

func (p *Postgres) AddRejection(ctx context.Context, name, website string) error {
	_, err := p.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, website) VALUES ($1, $2)`, p.rejections),
		name, website)
	if err != nil {
		return fmt.Errorf("add rejection: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func recordArgs(rec activity.Record) []any {
	return []any{
		rec.ID,
		rec.Title.EN, rec.Title.FR,
		rec.Description.EN, rec.Description.FR,
		rec.Categories,
		rec.AgeMin, rec.AgeMax,
		rec.PriceAmount, rec.PriceCurrency,
		rec.Neighborhood, rec.Address,
		rec.ContactEmail, rec.ContactPhone, rec.Website,
		rec.Images,
		rec.ApprovalState,
		rec.CrawledAt, rec.CreatedAt, rec.UpdatedAt,
	}
}

func scanRecord(row pgx.Row) (activity.Record, error) {
	var rec activity.Record
	err := row.Scan(
		&rec.ID,
		&rec.Title.EN, &rec.Title.FR,
		&rec.Description.EN, &rec.Description.FR,
		&rec.Categories,
		&rec.AgeMin, &rec.AgeMax,
		&rec.PriceAmount, &rec.PriceCurrency,
		&rec.Neighborhood, &rec.Address,
		&rec.ContactEmail, &rec.ContactPhone, &rec.Website,
		&rec.Images,
		&rec.ApprovalState,
		&rec.CrawledAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return activity.Record{}, err
	}
	return rec, nil
}
