// Package postgres reads catalogued deals from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
)

// Open connects to the database and sizes the pool.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

const dealColumns = `id::text AS id, business_name, deal_text, price::float8 AS price, expires_at,
	latitude::float8 AS latitude, longitude::float8 AS longitude, created_at`

const (
	selectDealsSQL = `SELECT ` + dealColumns + ` FROM deals
	ORDER BY created_at DESC LIMIT $1`

	selectActiveDealsSQL = `SELECT ` + dealColumns + ` FROM deals
	WHERE expires_at IS NULL OR expires_at > $1
	ORDER BY created_at DESC LIMIT $2`

	selectDealByIDSQL = `SELECT ` + dealColumns + ` FROM deals WHERE id::text = $1`
)

// Repository implements query.DealStore. Every call acquires its own
// connection from the pool and releases it before returning.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a Repository over the pool.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type dealRow struct {
	ID           string          `db:"id"`
	BusinessName sql.NullString  `db:"business_name"`
	DealText     sql.NullString  `db:"deal_text"`
	Price        sql.NullFloat64 `db:"price"`
	ExpiresAt    sql.NullTime    `db:"expires_at"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r dealRow) toDomain() domain.Deal {
	d := domain.Deal{
		ID:           r.ID,
		BusinessName: r.BusinessName.String,
		DealText:     r.DealText.String,
		Price:        r.Price.Float64,
		Location: domain.Coordinate{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time.UTC()
		d.ExpiresAt = &t
	}
	return d
}

// SelectDeals returns up to q.Limit deals, newest first.
func (r *Repository) SelectDeals(ctx context.Context, q domain.DealQuery) ([]domain.Deal, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var rows []dealRow
	if q.ActiveAt != nil {
		err = conn.SelectContext(ctx, &rows, selectActiveDealsSQL, q.ActiveAt.UTC(), q.Limit)
	} else {
		err = conn.SelectContext(ctx, &rows, selectDealsSQL, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select deals: %w", err)
	}

	deals := make([]domain.Deal, len(rows))
	for i, row := range rows {
		deals[i] = row.toDomain()
	}
	return deals, nil
}

// SelectDealByID returns one deal, or domain.ErrDealNotFound.
func (r *Repository) SelectDealByID(ctx context.Context, id string) (domain.Deal, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var row dealRow
	if err := conn.GetContext(ctx, &row, selectDealByIDSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		return domain.Deal{}, fmt.Errorf("select deal %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
