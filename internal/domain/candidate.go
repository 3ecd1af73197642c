package domain

import "errors"

// Candidate is a not-yet-selected media reference discovered during one
// extraction attempt. SizeHint is a best-effort resolution proxy (rendered
// pixel area, parsed dimensions or URL length) used only to break ties
// among same-source candidates.
type Candidate struct {
	URL      string
	Type     MediaType
	Source   ExtractionSource
	SizeHint int
}

// FailureReason classifies why a single strategy attempt produced nothing.
// All reasons are recoverable: the orchestrator advances to the next
// strategy or reports UNKNOWN to the caller.
type FailureReason string

const (
	FailureUnreachable FailureReason = "UNREACHABLE"    // page or relay could not be loaded
	FailureTimeout     FailureReason = "TIMEOUT"        // strategy exceeded its time budget
	FailureNoCandidate FailureReason = "NO_CANDIDATE"   // page loaded, no media pattern matched
	FailureNavigation  FailureReason = "NAVIGATION"     // browser navigation error
	FailureUnavailable FailureReason = "NOT_CONFIGURED" // strategy skipped, missing credential/endpoint
)

// ExtractionResult is the terminal output of one strategy invocation:
// either a resolved media reference or a failure reason, never partial.
type ExtractionResult struct {
	URL     string           `json:"url,omitempty"`
	Type    MediaType        `json:"type"`
	Source  ExtractionSource `json:"source,omitempty"`
	Failure FailureReason    `json:"failure,omitempty"`
}

// OK reports whether the attempt produced a usable media reference.
func (r ExtractionResult) OK() bool {
	return r.Failure == "" && r.URL != ""
}

// Media converts a successful result into a ResolvedMedia value.
func (r ExtractionResult) Media() ResolvedMedia {
	return ResolvedMedia{URL: r.URL, Type: r.Type, Source: r.Source}
}

// Resolved builds a successful extraction result.
func Resolved(url string, mediaType MediaType, source ExtractionSource) ExtractionResult {
	return ExtractionResult{URL: url, Type: mediaType, Source: source}
}

// Unresolved builds a failed extraction result.
func Unresolved(reason FailureReason) ExtractionResult {
	return ExtractionResult{Type: MediaTypeUnknown, Failure: reason}
}

// Caller-visible error taxonomy. Strategy-internal failures never surface
// as errors; only pipeline- and credential-level conditions do.
var (
	ErrCredentialInvalid = errors.New("credential rejected by remote service")
	ErrJobFailed         = errors.New("remote scrape job failed")
	ErrJobAborted        = errors.New("remote scrape job aborted")
	ErrJobTimedOut       = errors.New("remote scrape job did not finish in time")
	ErrResolveInProgress = errors.New("resolution already in progress for this ad")
)
