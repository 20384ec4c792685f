package discount

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/caseloft/store-service/internal/catalog"
)

// ProductSource is the slice of the catalog store the reconciler needs.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpdateDiscount(ctx context.Context, id string, discountedPrice int64, applied string) error
}

// Reconciler sweeps the catalog and rewrites each product's advertised sale
// price to match its discount window at the time of the sweep.
type Reconciler struct {
	source           ProductSource
	logger           zerolog.Logger
	writeConcurrency int
	now              func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWriteConcurrency caps concurrent per-product writes within one sweep.
func WithWriteConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.writeConcurrency = n
		}
	}
}

// WithClock overrides the sweep's notion of now. Tests pin the instant.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler over the given product source. A nil
// source yields a reconciler that degrades every sweep to a logged no-op,
// which keeps the scheduler exercisable without a configured database.
func NewReconciler(source ProductSource, logger zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:           source,
		logger:           logger.With().Str("component", "discount-sweep").Logger(),
		writeConcurrency: 8,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep runs one reconciliation pass over the whole catalog and returns the
// number of products whose stored price pair was rewritten.
//
// The sweep fails soft: a failure on one product is logged and counted but
// never blocks the others, and an unreachable store degrades the run to a
// no-op that still reports completion.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("discount").Start(ctx, "discount.Sweep")
	defer span.End()

	start := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(start).Seconds())
		sweepsTotal.Inc()
	}()

	if r.source == nil {
		r.logger.Warn().Msg("Product store unavailable, skipping discount sweep")
		return 0, nil
	}

	products, err := r.source.ListProducts(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list products for discount sweep")
		return 0, nil
	}

	r.logger.Info().Int("products", len(products)).Msg("Discount sweep started")
	now := r.now()

	type pendingWrite struct {
		id              string
		discountedPrice int64
		applied         string
	}

	var writes []pendingWrite
	for _, p := range products {
		res := Evaluate(p.Price, p.DiscountApplied, p.DiscountRate, p.DiscountStartDate, p.DiscountEndDate, now)

		target := res.EffectivePrice
		// Never-reconciled rows store no sale price yet; a stored 0 is a
		// real value (100% discount), not absence.
		current := p.Price
		if p.DiscountedPrice != nil {
			current = *p.DiscountedPrice
		}

		// Idempotence guard: a sweep over consistent data writes nothing.
		if target == current {
			continue
		}

		applied := "N"
		if res.Active {
			applied = "Y"
		}
		writes = append(writes, pendingWrite{id: p.ID, discountedPrice: target, applied: applied})
	}

	// Fire all writes, settle all: one bad row must not starve the rest, so
	// worker funcs always return nil and failures are only counted.
	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.writeConcurrency)
	for _, w := range writes {
		w := w
		g.Go(func() error {
			if err := r.source.UpdateDiscount(gctx, w.id, w.discountedPrice, w.applied); err != nil {
				r.logger.Error().Err(err).Str("product_id", w.id).Msg("Failed to write discount update")
				writeFailures.Inc()
				failed.Add(1)
				return nil
			}
			productsUpdated.Inc()
			updated.Add(1)
			return nil
		})
	}
	// Workers always return nil; failures are settled above, never raised.
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("products.scanned", len(products)),
		attribute.Int64("products.updated", updated.Load()),
	)
	r.logger.Info().
		Int("scanned", len(products)).
		Int64("updated", updated.Load()).
		Int64("failed", failed.Load()).
		Msg("Discount sweep done")

	return int(updated.Load()), nil
}
