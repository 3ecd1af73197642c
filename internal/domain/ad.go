package domain

import (
	"time"
)

// MediaType classifies the creative attached to an ad.
type MediaType string

const (
	MediaTypeVideo        MediaType = "VIDEO"
	MediaTypeImage        MediaType = "IMAGE"
	MediaTypeDynamicImage MediaType = "DYNAMIC_IMAGE" // carousel/catalog creative, detected from metadata
	MediaTypeScreenshot   MediaType = "SCREENSHOT"    // rendered capture, no canonical CDN URL
	MediaTypeUnknown      MediaType = "UNKNOWN"
)

// ExtractionSource records which technique produced a resolved media URL.
// It is used for confidence ranking and UI badges only.
type ExtractionSource string

const (
	SourceNetworkObserved ExtractionSource = "NETWORK_OBSERVED"
	SourceDOMVideoTag     ExtractionSource = "DOM_VIDEO_TAG"
	SourceDOMEmbeddedJSON ExtractionSource = "DOM_EMBEDDED_JSON"
	SourceDOMImgTag       ExtractionSource = "DOM_IMG_TAG"
	SourceNetworkFallback ExtractionSource = "NETWORK_FALLBACK"
	SourceMetaTagFallback ExtractionSource = "META_TAG_FALLBACK"
	SourceManagedJob      ExtractionSource = "MANAGED_JOB"
	SourceScreenshot      ExtractionSource = "SCREENSHOT_CAPTURE"
)

// Confidence orders sources from least to most trustworthy. Screenshot
// captures rank lowest because they have no stable CDN URL; managed-job
// results rank highest because they are durably re-hosted.
func (s ExtractionSource) Confidence() int {
	switch s {
	case SourceManagedJob:
		return 7
	case SourceNetworkObserved:
		return 6
	case SourceDOMVideoTag:
		return 5
	case SourceDOMEmbeddedJSON:
		return 4
	case SourceDOMImgTag:
		return 3
	case SourceNetworkFallback:
		return 2
	case SourceMetaTagFallback:
		return 1
	case SourceScreenshot:
		return 0
	default:
		return -1
	}
}

// IsScreenshot reports whether the source is a rendered capture.
func (s ExtractionSource) IsScreenshot() bool {
	return s == SourceScreenshot
}

// ResolvedMedia is the media reference attached to an ad once resolution
// succeeds.
type ResolvedMedia struct {
	URL    string           `json:"url"`
	Type   MediaType        `json:"type"`
	Source ExtractionSource `json:"source"`
}

// AdRecord is one observed advertisement from the transparency archive.
// The resolution engine only reads ID, SnapshotURL and the timestamps;
// everything else is carried for the dashboard.
type AdRecord struct {
	ID           string     `json:"id" db:"id"`
	PageID       string     `json:"page_id" db:"page_id"`
	PageName     string     `json:"page_name" db:"page_name"`
	Body         *string    `json:"body" db:"body"`
	SnapshotURL  string     `json:"snapshot_url" db:"snapshot_url"`
	CreationTime time.Time  `json:"creation_time" db:"creation_time"`
	StopTime     *time.Time `json:"stop_time" db:"stop_time"`
	Reach        int64      `json:"reach" db:"reach"`

	// Media is nil until a resolution attempt succeeds.
	Media *ResolvedMedia `json:"media" db:"-"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the ad is still delivering (no stop time).
func (a *AdRecord) IsActive() bool {
	return a.StopTime == nil
}

// ApplyResolution merges a resolution result onto the ad, enforcing the
// monotonic-confidence rule: an automatic attempt never replaces existing
// media with a lower-confidence source. Forced merges always apply.
// Returns true if the media was updated.
func (a *AdRecord) ApplyResolution(media ResolvedMedia, forced bool) bool {
	if media.URL == "" || media.Type == MediaTypeUnknown {
		return false
	}
	if forced || a.Media == nil {
		a.Media = &media
		return true
	}
	if media.Source.Confidence() >= a.Media.Source.Confidence() {
		a.Media = &media
		return true
	}
	return false
}
