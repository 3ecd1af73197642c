package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"adscope/internal/domain"
)

type stubStrategy struct {
	name      string
	available bool
	result    domain.ExtractionResult
	calls     int
	mu        sync.Mutex
	block     chan struct{}
}

func (s *stubStrategy) Name() string    { return s.name }
func (s *stubStrategy) Available() bool { return s.available }

func (s *stubStrategy) Resolve(ctx context.Context, snapshotURL string) domain.ExtractionResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.result
}

func (s *stubStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolverFallbackChain(t *testing.T) {
	failing := &stubStrategy{name: "relay", available: true, result: domain.Unresolved(domain.FailureNoCandidate)}
	winning := &stubStrategy{name: "browser", available: true, result: domain.Resolved("https://video.fbcdn.net/a.mp4", domain.MediaTypeVideo, domain.SourceNetworkObserved)}
	never := &stubStrategy{name: "managed", available: true, result: domain.Resolved("https://other.example/b.mp4", domain.MediaTypeVideo, domain.SourceManagedJob)}

	r := NewResolver([]Strategy{failing, winning, never}, nil, discardLogger())

	media, err := r.Resolve(context.Background(), "ad-1", "https://snapshot.example/1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.URL != "https://video.fbcdn.net/a.mp4" {
		t.Errorf("URL = %q", media.URL)
	}
	if failing.callCount() != 1 || winning.callCount() != 1 {
		t.Errorf("expected both first strategies to run once, got %d and %d", failing.callCount(), winning.callCount())
	}
	if never.callCount() != 0 {
		t.Errorf("chain should short-circuit after a success, but third strategy ran %d times", never.callCount())
	}
}

func TestResolverUnavailableStrategySkipped(t *testing.T) {
	unavailable := &stubStrategy{name: "managed", available: false, result: domain.Resolved("https://x.example/a.mp4", domain.MediaTypeVideo, domain.SourceManagedJob)}
	winning := &stubStrategy{name: "relay", available: true, result: domain.Resolved("https://scontent.xx.fbcdn.net/a_n.jpg", domain.MediaTypeImage, domain.SourceDOMEmbeddedJSON)}

	r := NewResolver([]Strategy{unavailable, winning}, nil, discardLogger())

	media, err := r.Resolve(context.Background(), "ad-2", "https://snapshot.example/2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unavailable.callCount() != 0 {
		t.Error("unavailable strategy should never be invoked")
	}
	if media.Source != domain.SourceDOMEmbeddedJSON {
		t.Errorf("source = %q", media.Source)
	}
}

func TestResolverAllStrategiesFail(t *testing.T) {
	a := &stubStrategy{name: "relay", available: true, result: domain.Unresolved(domain.FailureUnreachable)}
	b := &stubStrategy{name: "browser", available: true, result: domain.Unresolved(domain.FailureTimeout)}

	r := NewResolver([]Strategy{a, b}, nil, discardLogger())

	media, err := r.Resolve(context.Background(), "ad-3", "https://snapshot.example/3", false)
	if err != nil {
		t.Fatalf("an exhausted chain is not an error, got: %v", err)
	}
	if media.Type != domain.MediaTypeUnknown {
		t.Errorf("type = %q, want %q", media.Type, domain.MediaTypeUnknown)
	}
	if media.URL != "" {
		t.Errorf("URL should be empty, got %q", media.URL)
	}
}

func TestResolverCachesSuccess(t *testing.T) {
	strat := &stubStrategy{name: "relay", available: true, result: domain.Resolved("https://scontent.xx.fbcdn.net/a_n.jpg", domain.MediaTypeImage, domain.SourceDOMImgTag)}

	r := NewResolver([]Strategy{strat}, nil, discardLogger())

	if _, err := r.Resolve(context.Background(), "ad-4", "https://snapshot.example/4", false); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(context.Background(), "ad-4", "https://snapshot.example/4", false); err != nil {
		t.Fatal(err)
	}
	if strat.callCount() != 1 {
		t.Errorf("second resolve should hit the cache, strategy ran %d times", strat.callCount())
	}

	// forceRefresh bypasses the cache.
	if _, err := r.Resolve(context.Background(), "ad-4", "https://snapshot.example/4", true); err != nil {
		t.Fatal(err)
	}
	if strat.callCount() != 2 {
		t.Errorf("forced resolve should run the chain again, strategy ran %d times", strat.callCount())
	}
}

func TestResolverRejectsConcurrentDuplicate(t *testing.T) {
	block := make(chan struct{})
	strat := &stubStrategy{
		name:      "browser",
		available: true,
		result:    domain.Resolved("https://video.fbcdn.net/a.mp4", domain.MediaTypeVideo, domain.SourceDOMVideoTag),
		block:     block,
	}

	r := NewResolver([]Strategy{strat}, nil, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Resolve(context.Background(), "ad-5", "https://snapshot.example/5", false)
	}()

	// Wait until the first resolve is inside the strategy.
	for strat.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := r.Resolve(context.Background(), "ad-5", "https://snapshot.example/5", false)
	if !errors.Is(err, domain.ErrResolveInProgress) {
		t.Errorf("expected ErrResolveInProgress, got %v", err)
	}

	close(block)
	<-done

	// The guard must be released once the first resolve finishes.
	if _, err := r.Resolve(context.Background(), "ad-5", "https://snapshot.example/5", false); err != nil {
		t.Errorf("guard not released after completion: %v", err)
	}
}

func TestResolverInvalidate(t *testing.T) {
	strat := &stubStrategy{name: "relay", available: true, result: domain.Resolved("https://scontent.xx.fbcdn.net/a_n.jpg", domain.MediaTypeImage, domain.SourceDOMImgTag)}
	r := NewResolver([]Strategy{strat}, nil, discardLogger())

	if _, err := r.Resolve(context.Background(), "ad-6", "https://snapshot.example/6", false); err != nil {
		t.Fatal(err)
	}
	r.Invalidate("ad-6")
	if _, err := r.Resolve(context.Background(), "ad-6", "https://snapshot.example/6", false); err != nil {
		t.Fatal(err)
	}
	if strat.callCount() != 2 {
		t.Errorf("invalidated ad should re-run the chain, strategy ran %d times", strat.callCount())
	}
}
