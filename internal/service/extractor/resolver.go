package extractor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adscope/internal/domain"
	"adscope/internal/pkg/metrics"
)

// Resolver runs the strategy chain for a single ad. Strategies are tried
// in registration order; the first success short-circuits the chain, and
// unavailable strategies are skipped without counting as failures.
//
// Results for an ad are cached in memory so repeat requests do not burn
// browser or relay capacity, and concurrent requests for the same ad are
// rejected rather than duplicated.
type Resolver struct {
	strategies []Strategy
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	cache    map[string]domain.ResolvedMedia
}

func NewResolver(strategies []Strategy, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		strategies: strategies,
		metrics:    m,
		logger:     logger,
		inflight:   make(map[string]struct{}),
		cache:      make(map[string]domain.ResolvedMedia),
	}
}

// Resolve finds media for one ad. A cached result is returned as-is
// unless forceRefresh is set. When every strategy fails the returned
// media has type UNKNOWN and a nil error: exhausting the chain is an
// answer, not a fault.
func (r *Resolver) Resolve(ctx context.Context, adID, snapshotURL string, forceRefresh bool) (domain.ResolvedMedia, error) {
	r.mu.Lock()
	if !forceRefresh {
		if cached, ok := r.cache[adID]; ok {
			r.mu.Unlock()
			return cached, nil
		}
	}
	if _, busy := r.inflight[adID]; busy {
		r.mu.Unlock()
		return domain.ResolvedMedia{}, domain.ErrResolveInProgress
	}
	r.inflight[adID] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, adID)
		r.mu.Unlock()
	}()

	for _, strat := range r.strategies {
		if !strat.Available() {
			continue
		}

		start := time.Now()
		result := strat.Resolve(ctx, snapshotURL)
		elapsed := time.Since(start)

		if r.metrics != nil {
			r.metrics.ResolveDuration.WithLabelValues(strat.Name()).Observe(elapsed.Seconds())
		}

		if result.OK() {
			if r.metrics != nil {
				r.metrics.ResolveAttempts.WithLabelValues(strat.Name(), "resolved").Inc()
			}
			media := result.Media()
			r.logger.Info("media resolved",
				"ad_id", adID,
				"strategy", strat.Name(),
				"type", media.Type,
				"source", media.Source,
				"duration_ms", elapsed.Milliseconds())

			r.mu.Lock()
			r.cache[adID] = media
			r.mu.Unlock()
			return media, nil
		}

		if r.metrics != nil {
			r.metrics.ResolveAttempts.WithLabelValues(strat.Name(), string(result.Failure)).Inc()
		}
		r.logger.Warn("strategy failed",
			"ad_id", adID,
			"strategy", strat.Name(),
			"reason", result.Failure,
			"duration_ms", elapsed.Milliseconds())

		if ctx.Err() != nil {
			break
		}
	}

	return domain.ResolvedMedia{Type: domain.MediaTypeUnknown}, nil
}

// Invalidate drops the cached result for an ad, forcing the next Resolve
// to run the chain again.
func (r *Resolver) Invalidate(adID string) {
	r.mu.Lock()
	delete(r.cache, adID)
	r.mu.Unlock()
}
