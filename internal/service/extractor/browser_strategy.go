package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"adscope/internal/domain"
	"adscope/internal/pkg/mediaurl"
)

const (
	// Hard ceiling for one attempt, covering navigation, settle and
	// capture.
	pageBudget     = 40 * time.Second
	domSettleDelay = 4 * time.Second
	scrollSettle   = 1500 * time.Millisecond

	// Rendered images below this edge length are UI chrome, not creatives.
	minRenderedEdge = 400
)

// BrowserStrategy drives the shared headless Chromium against the
// snapshot URL. It observes network responses while the page renders,
// then mines the live DOM, and as a last resort captures a screenshot of
// the creative region so the caller is never left with nothing to show.
type BrowserStrategy struct {
	handle *BrowserHandle
	logger *slog.Logger
}

func NewBrowserStrategy(handle *BrowserHandle, logger *slog.Logger) *BrowserStrategy {
	return &BrowserStrategy{handle: handle, logger: logger}
}

func (s *BrowserStrategy) Name() string { return "browser" }

func (s *BrowserStrategy) Available() bool { return s.handle != nil }

func (s *BrowserStrategy) Resolve(ctx context.Context, snapshotURL string) domain.ExtractionResult {
	browser, err := s.handle.Acquire()
	if err != nil {
		s.logger.Error("browser unavailable", "error", err)
		return domain.Unresolved(domain.FailureUnreachable)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		if isConnectionError(err) {
			s.handle.Discard(browser)
		}
		return domain.Unresolved(domain.FailureUnreachable)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(pageBudget)

	if err := s.preparePage(page); err != nil {
		s.logger.Debug("page preparation failed", "error", err)
	}

	sniffer := newNetworkSniffer()
	sniffer.attach(page)

	if err := rod.Try(func() {
		page.MustNavigate(snapshotURL).MustWaitLoad()
	}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Unresolved(domain.FailureTimeout)
		}
		if isConnectionError(err) {
			s.handle.Discard(browser)
			return domain.Unresolved(domain.FailureUnreachable)
		}
		s.logger.Warn("navigation failed", "url", snapshotURL, "error", err)
		return domain.Unresolved(domain.FailureNavigation)
	}

	// Give the page time to hydrate, then nudge the scroll position so
	// lazy-loaded creatives fetch their full-size sources.
	sleepCtx(ctx, domSettleDelay)
	_ = rod.Try(func() {
		page.MustEval(`() => window.scrollBy(0, 300)`)
	})
	sleepCtx(ctx, scrollSettle)

	s.dismissOverlays(page)

	candidates := sniffer.candidates()
	candidates = append(candidates, s.collectDOM(page)...)

	if winner, ok := selectCandidate(candidates); ok {
		return domain.Resolved(winner.URL, winner.Type, winner.Source)
	}

	if shot, ok := s.captureScreenshot(page); ok {
		return domain.Resolved(shot, domain.MediaTypeScreenshot, domain.SourceScreenshot)
	}

	if ctx.Err() != nil {
		return domain.Unresolved(domain.FailureTimeout)
	}
	return domain.Unresolved(domain.FailureNoCandidate)
}

func (s *BrowserStrategy) preparePage(page *rod.Page) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: browserUserAgent}); err != nil {
		return err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1280,
		Height:            1024,
		DeviceScaleFactor: 1,
	}); err != nil {
		return err
	}
	// Mask the headless fingerprint before any site script runs.
	_, err := page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`)
	return err
}

// dismissOverlays strips consent and login dialogs that would otherwise
// cover the creative in a screenshot. Failures here are harmless.
func (s *BrowserStrategy) dismissOverlays(page *rod.Page) {
	_ = rod.Try(func() {
		page.MustEval(`() => {
			document.querySelectorAll('div[role="dialog"], div[data-testid*="cookie"]').forEach(el => el.remove());
			document.body.style.overflow = 'visible';
		}`)
	})
}

// collectDOM mines the rendered document: the first <video> element,
// media URLs serialized inside inline scripts, and large rendered <img>
// elements with their natural dimensions as the size hint.
func (s *BrowserStrategy) collectDOM(page *rod.Page) []domain.Candidate {
	var out []domain.Candidate

	_ = rod.Try(func() {
		src := page.MustEval(`() => {
			const v = document.querySelector('video');
			if (!v) return '';
			return v.currentSrc || v.src || '';
		}`).Str()
		if src != "" && !isBlobURL(src) {
			out = append(out, domain.Candidate{
				URL:    mediaurl.DecodeEscaped(src),
				Type:   domain.MediaTypeVideo,
				Source: domain.SourceDOMVideoTag,
			})
		}
	})

	_ = rod.Try(func() {
		scripts := page.MustEval(`() => Array.from(document.querySelectorAll('script'))
			.map(s => s.textContent)
			.join('\n')`).Str()
		out = append(out, extractEmbeddedCandidates(scripts)...)
	})

	_ = rod.Try(func() {
		imgs := page.MustEval(`(minEdge) => Array.from(document.querySelectorAll('img'))
			.filter(i => i.naturalWidth > minEdge && i.naturalHeight > minEdge)
			.map(i => ({src: i.currentSrc || i.src || '', area: i.naturalWidth * i.naturalHeight}))`,
			minRenderedEdge)
		for _, item := range imgs.Arr() {
			src := mediaurl.DecodeEscaped(item.Get("src").Str())
			if !mediaurl.AcceptImage(src) {
				continue
			}
			out = append(out, domain.Candidate{
				URL:      src,
				Type:     domain.MediaTypeImage,
				Source:   domain.SourceDOMImgTag,
				SizeHint: item.Get("area").Int(),
			})
		}
	})

	return out
}

// creativeSelectors locate the ad creative region on a snapshot page,
// tightest match first. The main content region is the last resort
// before falling back to the viewport.
var creativeSelectors = []string{
	`div[data-testid="ad_creative_container"]`,
	`.uiScaledImageContainer`,
	`div[role="img"]`,
	`video`,
	`div[role="main"]`,
}

// captureScreenshot grabs the creative region as a JPEG data URL. The
// first matching creative container is preferred; the visible viewport
// is the fallback.
func (s *BrowserStrategy) captureScreenshot(page *rod.Page) (string, bool) {
	quality := 80
	var bin []byte

	for _, selector := range creativeSelectors {
		el, err := page.Timeout(5 * time.Second).Element(selector)
		if err != nil {
			continue
		}
		if bin, _ = el.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality); len(bin) > 0 {
			break
		}
	}
	if len(bin) == 0 {
		var err error
		bin, err = page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: &quality,
		})
		if err != nil || len(bin) == 0 {
			return "", false
		}
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bin), true
}

func isBlobURL(u string) bool {
	return len(u) >= 5 && u[:5] == "blob:"
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// networkSniffer records media responses observed while the page loads.
// It must be attached before navigation or early responses are missed.
type networkSniffer struct {
	mu   sync.Mutex
	seen []domain.Candidate
}

func newNetworkSniffer() *networkSniffer {
	return &networkSniffer{}
}

func (n *networkSniffer) attach(page *rod.Page) {
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) {
		n.record(e)
	})
	go wait()
}

func (n *networkSniffer) record(e *proto.NetworkResponseReceived) {
	if e.Response == nil || e.Response.URL == "" {
		return
	}
	// Errors and redirects do not carry the creative payload.
	if e.Response.Status < 200 || e.Response.Status >= 400 {
		return
	}
	url := e.Response.URL

	switch {
	case e.Type == proto.NetworkResourceTypeMedia || mediaurl.IsVideoURL(url):
		n.add(domain.Candidate{URL: url, Type: domain.MediaTypeVideo, Source: domain.SourceNetworkObserved})
	case e.Type == proto.NetworkResourceTypeImage && mediaurl.AcceptImage(url):
		n.add(domain.Candidate{URL: url, Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved})
	}
}

func (n *networkSniffer) add(c domain.Candidate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, c)
}

func (n *networkSniffer) candidates() []domain.Candidate {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Candidate, len(n.seen))
	copy(out, n.seen)
	return out
}
