package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product ID does not exist.
var ErrNotFound = errors.New("product not found")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// productColumns selects a product together with its latest and
// second-latest history samples. Keeping both reads on the same query is
// what makes the displayed price change and the drop-detection delta agree.
const productColumns = `
SELECT p.id, p.name, p.url, p.currency, p.notify_email, p.created_at,
       cur.price::text  AS current_price,
       prev.price::text AS previous_price
FROM products p
LEFT JOIN LATERAL (
    SELECT price FROM price_history ph WHERE ph.product_id = p.id
    ORDER BY recorded_at DESC LIMIT 1
) cur ON true
LEFT JOIN LATERAL (
    SELECT price FROM price_history ph WHERE ph.product_id = p.id
    ORDER BY recorded_at DESC OFFSET 1 LIMIT 1
) prev ON true
`

func (r *Repository) InsertProduct(ctx context.Context, p *Product) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, url, currency, notify_email) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		p.Name, p.URL, p.Currency, p.NotifyEmail).Scan(&id, &p.CreatedAt)
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, productColumns+`ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repository) GetProductByID(ctx context.Context, id int) (*Product, error) {
	rows, err := r.db.Query(ctx, productColumns+`WHERE p.id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanProduct(rows)
}

// RecordSnapshot persists one successful check: it refreshes the stored
// title/currency and appends a history sample, atomically. Callers must not
// invoke it for a zero or negative price.
func (r *Repository) RecordSnapshot(ctx context.Context, id int, title string, price decimal.Decimal, cur string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE products SET name = COALESCE(NULLIF($2, ''), name), currency = COALESCE(NULLIF($3, ''), currency) WHERE id = $1`,
		id, title, cur)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO price_history (product_id, price, recorded_at) VALUES ($1, $2, $3)`,
		id, price.String(), at)
	if err != nil {
		return fmt.Errorf("insert price sample for product %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

// DeleteProduct removes the product; its history rows go with it via the
// FK cascade, so no orphaned samples remain.
func (r *Repository) DeleteProduct(ctx context.Context, id int) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPriceHistory returns the most recent samples, newest first, bounded for
// display.
func (r *Repository) GetPriceHistory(ctx context.Context, productID, limit int) ([]PriceSample, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
SELECT id, product_id, price::text, recorded_at
FROM price_history
WHERE product_id = $1
ORDER BY recorded_at DESC
LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceSample
	for rows.Next() {
		var (
			s   PriceSample
			raw string
		)
		if err := rows.Scan(&s.ID, &s.ProductID, &raw, &s.RecordedAt); err != nil {
			return nil, err
		}
		if s.Price, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parse stored price %q: %w", raw, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanProduct(rows pgx.Rows) (*Product, error) {
	var (
		p        Product
		curNull  sql.NullString
		prevNull sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.Currency, &p.NotifyEmail, &p.CreatedAt, &curNull, &prevNull); err != nil {
		return nil, err
	}
	var err error
	if p.CurrentPrice, err = nullDecimal(curNull); err != nil {
		return nil, err
	}
	if p.PreviousPrice, err = nullDecimal(prevNull); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored price %q: %w", v.String, err)
	}
	return &d, nil
}
