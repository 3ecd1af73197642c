package extractor

import (
	"sort"

	"adscope/internal/domain"
	"adscope/internal/pkg/mediaurl"
)

// selectionTier is one rung of the candidate ranking ladder. Tiers are
// evaluated top to bottom and the first tier with a surviving candidate
// decides the outcome; lower tiers are never consulted.
type selectionTier struct {
	source domain.ExtractionSource
	mtype  domain.MediaType
	pick   func([]domain.Candidate) (domain.Candidate, bool)
}

var selectionTiers = []selectionTier{
	{domain.SourceNetworkObserved, domain.MediaTypeVideo, pickFirst},
	{domain.SourceDOMVideoTag, domain.MediaTypeVideo, pickFirst},
	{domain.SourceDOMEmbeddedJSON, domain.MediaTypeVideo, pickFirst},
	{domain.SourceDOMEmbeddedJSON, domain.MediaTypeImage, pickFirst},
	{domain.SourceNetworkObserved, domain.MediaTypeImage, pickNetworkImage},
	{domain.SourceDOMImgTag, domain.MediaTypeImage, pickLargest},
	{domain.SourceNetworkFallback, domain.MediaTypeImage, pickNetworkImage},
	{domain.SourceMetaTagFallback, domain.MediaTypeImage, pickFirst},
	{domain.SourceScreenshot, domain.MediaTypeScreenshot, pickFirst},
}

// selectCandidate ranks a candidate pool and returns the single winner.
// Selection is fully deterministic: the same pool in the same order
// always yields the same winner.
func selectCandidate(candidates []domain.Candidate) (domain.Candidate, bool) {
	for _, tier := range selectionTiers {
		var pool []domain.Candidate
		for _, c := range candidates {
			if c.Source == tier.source && c.Type == tier.mtype && c.URL != "" {
				pool = append(pool, c)
			}
		}
		if len(pool) == 0 {
			continue
		}
		if winner, ok := tier.pick(pool); ok {
			return winner, true
		}
	}
	return domain.Candidate{}, false
}

// pickFirst keeps observation order: whatever was seen first wins.
func pickFirst(pool []domain.Candidate) (domain.Candidate, bool) {
	return pool[0], true
}

// pickLargest prefers the candidate with the largest rendered area,
// falling back to observation order when no size hints are available.
func pickLargest(pool []domain.Candidate) (domain.Candidate, bool) {
	best := pool[0]
	for _, c := range pool[1:] {
		if c.SizeHint > best.SizeHint {
			best = c
		}
	}
	return best, true
}

// pickNetworkImage applies the creative heuristics to images sniffed off
// the wire: obvious UI chrome is dropped, URLs carrying likely-creative
// markers jump the queue, and remaining ties break toward the longest
// URL since CDN creative URLs carry long signed query strings.
func pickNetworkImage(pool []domain.Candidate) (domain.Candidate, bool) {
	var likely, rest []domain.Candidate
	for _, c := range pool {
		if !mediaurl.AcceptImage(c.URL) {
			continue
		}
		if mediaurl.IsLikelyCreative(c.URL) {
			likely = append(likely, c)
		} else {
			rest = append(rest, c)
		}
	}
	group := likely
	if len(group) == 0 {
		group = rest
	}
	if len(group) == 0 {
		return domain.Candidate{}, false
	}
	sort.SliceStable(group, func(i, j int) bool {
		return len(group[i].URL) > len(group[j].URL)
	})
	return group[0], true
}
