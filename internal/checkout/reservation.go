package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Service runs the checkout flows against Postgres.
type Service struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewService creates a checkout service backed by the given pool.
func NewService(pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With().Str("component", "checkout").Logger(),
	}
}

// Reserve atomically decrements a product's remaining stock and records the
// order plus its purchase-history entry. Everything happens in one
// transaction with the product row locked, so two concurrent buyers of the
// last unit can never both succeed.
//
// Rows that predate inventory tracking carry NULL initial/remaining stock;
// the first reservation adopts the legacy stock column as the opening count
// and starts tracking from there. The legacy stock column itself is kept in
// step with remaining stock so older readers still see a truthful number.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*Order, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.Reserve")
	defer span.End()

	start := time.Now()
	defer func() { reservationDuration.Observe(time.Since(start).Seconds()) }()

	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.ProductID == "" {
		return nil, ErrProductNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reservation: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		name           string
		price          int64
		stock          int
		initialStock   *int
		remainingStock *int
	)
	err = tx.QueryRow(ctx, `
		SELECT name, price, stock, initial_stock, remaining_stock
		FROM products WHERE id = $1
		FOR UPDATE
	`, req.ProductID).Scan(&name, &price, &stock, &initialStock, &remainingStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	remaining := stock
	if remainingStock != nil {
		remaining = *remainingStock
	}
	initial := stock
	if initialStock != nil {
		initial = *initialStock
	}

	if remaining < req.Quantity {
		reservationConflictsTotal.Inc()
		s.logger.Info().
			Str("product_id", req.ProductID).
			Int("requested", req.Quantity).
			Int("remaining", remaining).
			Msg("Reservation rejected, insufficient stock")
		return nil, ErrInsufficientStock
	}
	newRemaining := remaining - req.Quantity

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET stock = $2, initial_stock = $3, remaining_stock = $4, updated_at = NOW()
		WHERE id = $1
	`, req.ProductID, newRemaining, initial, newRemaining)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	now := time.Now()
	order := &Order{
		ID:              uuid.New(),
		UserID:          req.UserID,
		UserEmail:       req.UserEmail,
		ProductID:       req.ProductID,
		ProductName:     name,
		ProductPrice:    price,
		Quantity:        req.Quantity,
		TotalPrice:      price * int64(req.Quantity),
		ShippingAddress: req.ShippingAddress,
		OrderSource:     req.OrderSource,
		OrderStatus:     StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, user_email, product_id, product_name, product_price,
			quantity, total_price, shipping_address, order_source, order_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		order.ID, order.UserID, order.UserEmail, order.ProductID, order.ProductName,
		order.ProductPrice, order.Quantity, order.TotalPrice, order.ShippingAddress,
		order.OrderSource, order.OrderStatus, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO purchases (id, order_id, user_id, user_email, product_id, product_name, quantity, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.New(), order.ID, order.UserID, order.UserEmail, order.ProductID, order.ProductName, order.Quantity, order.TotalPrice, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	reservationsTotal.Inc()
	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("product_id", req.ProductID).
		Int("quantity", req.Quantity).
		Int("remaining", newRemaining).
		Msg("Reservation committed")
	return order, nil
}

// CancelOrder deletes an order and restores its quantity to the product's
// remaining stock in one compensating transaction. A product that was deleted
// after the order was placed just loses the restock; the order still goes.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.CancelOrder")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin cancellation: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		productID string
		quantity  int
	)
	err = tx.QueryRow(ctx, `
		SELECT product_id, quantity FROM orders WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&productID, &quantity)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to lock order row: %w", err)
	}

	var (
		stock          int
		initialStock   *int
		remainingStock *int
	)
	err = tx.QueryRow(ctx, `
		SELECT stock, initial_stock, remaining_stock FROM products WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&stock, &initialStock, &remainingStock)
	switch {
	case err == pgx.ErrNoRows:
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("product_id", productID).
			Msg("Product gone, cancelling order without restock")
	case err != nil:
		return fmt.Errorf("failed to lock product row: %w", err)
	default:
		remaining := stock
		if remainingStock != nil {
			remaining = *remainingStock
		}
		initial := stock
		if initialStock != nil {
			initial = *initialStock
		}
		restored := remaining + quantity

		_, err = tx.Exec(ctx, `
			UPDATE products
			SET stock = $2, initial_stock = $3, remaining_stock = $4, updated_at = NOW()
			WHERE id = $1
		`, productID, restored, initial, restored)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	cancellationsTotal.Inc()
	span.SetAttributes(attribute.String("order.id", orderID.String()))
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("product_id", productID).
		Int("restored", quantity).
		Msg("Order cancelled, stock restored")
	return nil
}

// UpdateStatus moves an order to a new lifecycle status.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET order_status = $2, updated_at = NOW() WHERE id = $1
	`, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("status", status).
		Msg("Order status updated")
	return nil
}

const orderColumns = `
	id, user_id, user_email, product_id, product_name, product_price,
	quantity, total_price, shipping_address, order_source, order_status,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.UserEmail, &o.ProductID, &o.ProductName,
		&o.ProductPrice, &o.Quantity, &o.TotalPrice, &o.ShippingAddress,
		&o.OrderSource, &o.OrderStatus, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns all orders, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating orders: %w", rows.Err())
	}
	return orders, nil
}

// GetOrder returns one order, or nil when it does not exist.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}
