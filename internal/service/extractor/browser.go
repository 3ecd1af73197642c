package extractor

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// BrowserHandle owns the shared headless Chromium instance. The browser
// is launched lazily on first use and reused across extractions; when
// the connection dies the handle discards the dead instance and the next
// Acquire relaunches a fresh one.
type BrowserHandle struct {
	bin    string
	logger *slog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func NewBrowserHandle(bin string, logger *slog.Logger) *BrowserHandle {
	return &BrowserHandle{bin: bin, logger: logger}
}

// Acquire returns a connected browser, launching one if none is alive.
func (h *BrowserHandle) Acquire() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		// Cheap liveness probe; a dead websocket surfaces here instead
		// of mid-extraction.
		if _, err := h.browser.Version(); err == nil {
			return h.browser, nil
		}
		h.logger.Warn("browser connection lost, relaunching")
		h.teardownLocked()
	}

	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-web-security").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")
	if h.bin != "" {
		l = l.Bin(h.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	h.launcher = l
	h.browser = browser
	h.logger.Info("headless browser launched")
	return browser, nil
}

// Discard drops the shared instance after a connection-class failure so
// the next Acquire starts clean. No-op if a newer instance already
// replaced the one that failed.
func (h *BrowserHandle) Discard(b *rod.Browser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != b {
		return
	}
	h.logger.Warn("discarding browser instance after connection failure")
	h.teardownLocked()
}

// Close shuts down the browser at process exit.
func (h *BrowserHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teardownLocked()
}

func (h *BrowserHandle) teardownLocked() {
	if h.browser != nil {
		_ = h.browser.Close()
		h.browser = nil
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
		h.launcher = nil
	}
}

// isConnectionError reports whether an extraction failure indicates the
// browser process itself died rather than a problem with one page.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "context canceled") && strings.Contains(msg, "websocket") ||
		strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "browser has been closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection")
}
