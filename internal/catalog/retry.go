package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"larder/internal/costing"
	applog "larder/internal/log"
	"larder/internal/metrics"
)

type retrying struct {
	next    Reader
	delay   time.Duration
	metrics *metrics.Collector
}

// WithRetry retries each failed catalog call once when the failure looks transient.
// Not-found answers and cancelled contexts are returned immediately.
func WithRetry(next Reader, delay time.Duration, collector *metrics.Collector) Reader {
	return &retrying{next: next, delay: delay, metrics: collector}
}

func (r *retrying) Ingredient(ctx context.Context, id uuid.UUID) (costing.Ingredient, error) {
	return retryOnce(ctx, r, "ingredient", func() (costing.Ingredient, error) {
		return r.next.Ingredient(ctx, id)
	})
}

func (r *retrying) Preparation(ctx context.Context, id uuid.UUID) (costing.Preparation, error) {
	return retryOnce(ctx, r, "preparation", func() (costing.Preparation, error) {
		return r.next.Preparation(ctx, id)
	})
}

func (r *retrying) Units(ctx context.Context) ([]costing.Unit, error) {
	return retryOnce(ctx, r, "units", func() ([]costing.Unit, error) {
		return r.next.Units(ctx)
	})
}

func (r *retrying) ConversionFactor(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error) {
	return retryOnce(ctx, r, "conversion", func() (float64, error) {
		return r.next.ConversionFactor(ctx, kind, item, from, to)
	})
}

func retryOnce[T any](ctx context.Context, r *retrying, op string, call func() (T, error)) (T, error) {
	value, err := call()
	if err == nil || !Transient(err) {
		return value, err
	}

	applog.Warn(ctx, "catalog call failed, retrying once", "operation", op, "error", err)
	r.metrics.CatalogRetry(op)

	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return call()
}

// Transient reports whether err is worth retrying.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, costing.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var conv *costing.ConversionNotFoundError
	return !errors.As(err, &conv)
}
