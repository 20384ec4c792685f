package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/pkg/ident"
)

// Store provides product persistence over Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStore creates a product store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

const productColumns = `
	id, name, description, price, currency, image_url, compatibility,
	stock, category, discount_applied, discount_rate, discounted_price,
	COALESCE(discount_start_date, ''), COALESCE(discount_end_date, ''),
	initial_stock, remaining_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.ImageURL,
		&p.Compatibility, &p.Stock, &p.Category, &p.DiscountApplied,
		&p.DiscountRate, &p.DiscountedPrice, &p.DiscountStartDate,
		&p.DiscountEndDate, &p.InitialStock, &p.RemainingStock,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns every product in the catalog. The sweep reads the whole
// collection per tick; catalogs beyond a few thousand rows should move to
// cursor batching.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating products: %w", rows.Err())
	}
	return products, nil
}

// GetByID returns a product, or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// Create inserts a new product, assigning an id when none is given.
func (s *Store) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = ident.New(ident.PrefixProduct)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (
			id, name, description, price, currency, image_url, compatibility,
			stock, category, discount_applied, discount_rate, discounted_price,
			discount_start_date, discount_end_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		p.ID, p.Name, p.Description, p.Price, p.Currency, p.ImageURL,
		p.Compatibility, p.Stock, p.Category, p.DiscountApplied,
		p.DiscountRate, p.DiscountedPrice, p.DiscountStartDate,
		p.DiscountEndDate, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", p.ID).Msg("Failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Str("product_id", p.ID).
		Str("name", p.Name).
		Int64("price", p.Price).
		Msg("Product created")
	return nil
}

// Update rewrites a product's catalog fields. Inventory bookkeeping
// (initial/remaining stock) belongs to the reservation path and is not
// touched here.
func (s *Store) Update(ctx context.Context, p *Product) (bool, error) {
	p.UpdatedAt = time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET
			name = $2, description = $3, price = $4, currency = $5,
			image_url = $6, compatibility = $7, stock = $8, category = $9,
			discount_applied = $10, discount_rate = $11, discounted_price = $12,
			discount_start_date = $13, discount_end_date = $14, updated_at = $15
		WHERE id = $1
	`,
		p.ID, p.Name, p.Description, p.Price, p.Currency, p.ImageURL,
		p.Compatibility, p.Stock, p.Category, p.DiscountApplied,
		p.DiscountRate, p.DiscountedPrice, p.DiscountStartDate,
		p.DiscountEndDate, p.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", p.ID).Msg("Failed to update product")
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateDiscount writes the reconciled discount pair for one product. This is
// the sweep's single-row write; it deliberately leaves every other field alone.
func (s *Store) UpdateDiscount(ctx context.Context, id string, discountedPrice int64, applied string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE products
		SET discounted_price = $2, discount_applied = $3, updated_at = NOW()
		WHERE id = $1
	`, id, discountedPrice, applied)
	if err != nil {
		return fmt.Errorf("failed to update discount for product %s: %w", id, err)
	}
	return nil
}

// Delete removes a product. No inventory side effect: open orders keep their
// snapshot of the product fields.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("Failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
