package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"adscope/internal/domain"
)

const (
	relayRequestTimeout = 20 * time.Second
	relayMaxBodyBytes   = 5 << 20
)

// RelayStrategy fetches the snapshot page through public CORS relay
// services and mines the raw markup for media URLs. It sees no rendered
// DOM and no network traffic, so it leans entirely on the embedded-JSON
// patterns and static tag parsing. Cheap, rate-limited, and first in the
// chain.
type RelayStrategy struct {
	endpoints []string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewRelayStrategy(endpoints []string, logger *slog.Logger) *RelayStrategy {
	return &RelayStrategy{
		endpoints: endpoints,
		client:    &http.Client{Timeout: relayRequestTimeout},
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:    logger,
	}
}

func (s *RelayStrategy) Name() string { return "relay" }

func (s *RelayStrategy) Available() bool { return len(s.endpoints) > 0 }

func (s *RelayStrategy) Resolve(ctx context.Context, snapshotURL string) domain.ExtractionResult {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Unresolved(domain.FailureTimeout)
	}

	reachedAny := false
	for _, endpoint := range s.endpoints {
		markup, err := s.fetch(ctx, endpoint, snapshotURL)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return domain.Unresolved(domain.FailureTimeout)
			}
			s.logger.Debug("relay endpoint failed", "endpoint", endpoint, "error", err)
			continue
		}
		reachedAny = true

		candidates := extractEmbeddedCandidates(markup)
		candidates = append(candidates, parseStaticMarkup(markup)...)
		if winner, ok := selectCandidate(candidates); ok {
			return domain.Resolved(winner.URL, winner.Type, winner.Source)
		}
	}

	if !reachedAny {
		return domain.Unresolved(domain.FailureUnreachable)
	}
	return domain.Unresolved(domain.FailureNoCandidate)
}

func (s *RelayStrategy) fetch(ctx context.Context, endpoint, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+url.QueryEscape(target), nil)
	if err != nil {
		return "", fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, relayMaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading relay body: %w", err)
	}

	markup := string(body)
	if !strings.Contains(markup, "<") {
		return "", fmt.Errorf("relay body does not look like markup")
	}
	return markup, nil
}
