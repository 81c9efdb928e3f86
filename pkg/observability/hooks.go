package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/grove/pkg/domain"
)

// Combine fans every event out to each of the given hook sets, in order.
// Nil callbacks are skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReconcile: func(ctx context.Context, e *domain.ReconcileEvent) {
			for _, h := range hooks {
				if h.OnReconcile != nil {
					h.OnReconcile(ctx, e)
				}
			}
		},
		OnInvalidate: func(ctx context.Context, e *domain.InvalidationEvent) {
			for _, h := range hooks {
				if h.OnInvalidate != nil {
					h.OnInvalidate(ctx, e)
				}
			}
		},
	}
}

// LoggingHooks logs reconciliations at debug level and invalidations at info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReconcile: func(ctx context.Context, e *domain.ReconcileEvent) {
			logger.DebugContext(ctx, "reconcile",
				"provider", e.Provider,
				"dispatcher", e.Dispatcher,
				"duration", e.Duration,
				"collections", e.Collections,
				"requests", e.Requests,
			)
		},
		OnInvalidate: func(ctx context.Context, e *domain.InvalidationEvent) {
			logger.InfoContext(ctx, "handles invalidated",
				"provider", e.Provider,
				"kind", e.Kind,
				"reason", e.Reason,
				"count", e.Count,
			)
		},
	}
}
