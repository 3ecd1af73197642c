package scrapejob

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"adscope/internal/domain"
)

// ManagedStrategy resolves a single ad by submitting a one-URL run to
// the hosted runner. It is the most reliable and most expensive rung of
// the fallback chain, so it sits last. A rejected credential disables
// the strategy for the rest of the process.
type ManagedStrategy struct {
	client   *Client
	logger   *slog.Logger
	disabled atomic.Bool

	pollInterval time.Duration
	maxPolls     int
}

func NewManagedStrategy(client *Client, logger *slog.Logger) *ManagedStrategy {
	return &ManagedStrategy{
		client:       client,
		logger:       logger,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
}

func (s *ManagedStrategy) Name() string { return "managed" }

func (s *ManagedStrategy) Available() bool {
	return s.client.Configured() && !s.disabled.Load()
}

func (s *ManagedStrategy) Resolve(ctx context.Context, snapshotURL string) domain.ExtractionResult {
	job, err := s.client.Submit(ctx, []string{snapshotURL}, 1)
	if err != nil {
		return s.failure(err)
	}

	p := &Pipeline{client: s.client, logger: s.logger, pollInterval: s.pollInterval, maxPolls: s.maxPolls}
	job, err = p.awaitCompletion(ctx, job)
	if err != nil {
		return s.failure(err)
	}

	records, err := s.client.FetchResults(ctx, job.ResultLocator)
	if err != nil {
		return s.failure(err)
	}

	for i := range records {
		if url, mediaType, ok := records[i].BestMedia(); ok {
			return domain.Resolved(url, mediaType, domain.SourceManagedJob)
		}
	}
	return domain.Unresolved(domain.FailureNoCandidate)
}

func (s *ManagedStrategy) failure(err error) domain.ExtractionResult {
	switch {
	case errors.Is(err, domain.ErrCredentialInvalid):
		s.logger.Error("runner credential rejected, disabling managed strategy")
		s.disabled.Store(true)
		return domain.Unresolved(domain.FailureUnavailable)
	case errors.Is(err, domain.ErrJobTimedOut), errors.Is(err, context.DeadlineExceeded):
		return domain.Unresolved(domain.FailureTimeout)
	default:
		s.logger.Warn("managed resolution failed", "error", err)
		return domain.Unresolved(domain.FailureUnreachable)
	}
}
