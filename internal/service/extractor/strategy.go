// Package extractor implements the media resolution engine: given an ad
// snapshot URL it recovers a durable media URL for the creative through a
// chain of interchangeable extraction strategies.
package extractor

import (
	"context"

	"adscope/internal/domain"
)

// Strategy is one concrete technique for resolving media from a snapshot
// URL. Implementations are bounded by a hard timeout and convert every
// internal error into a typed failure result; nothing escapes as a panic
// or error past this boundary.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Available reports whether the strategy can run at all (credential
	// configured, service reachable at startup). Unavailable strategies
	// are skipped, not failed.
	Available() bool

	// Resolve runs one extraction attempt against the snapshot URL.
	Resolve(ctx context.Context, snapshotURL string) domain.ExtractionResult
}

// Desktop user agent presented to the target site by both the relay and
// browser strategies.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
