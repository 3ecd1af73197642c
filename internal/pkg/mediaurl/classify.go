// Package mediaurl classifies raw media URLs discovered while scraping ad
// snapshot pages. Everything in here is a pure function from strings to
// booleans so the filter rules can be tested without a browser or network.
package mediaurl

import (
	"strings"
)

// cdnHosts are the substrings a URL must contain to be considered a real
// creative asset host rather than arbitrary third-party content.
var cdnHosts = []string{
	"fbcdn",
	"scontent",
}

// videoExtensions mark a URL as video regardless of resource type.
var videoExtensions = []string{
	".mp4",
	".m4v",
	".webm",
	".mov",
}

// excludedMarkers identify thumbnails, emoji sprites, profile/avatar assets
// and platform UI chrome that must never be selected as a creative, even
// when they are the only image observed.
var excludedMarkers = []string{
	"_s.",        // small thumbnail variant
	"_t.",        // tiny thumbnail variant
	"emoji",      // emoji sprite sheets
	"profile",    // profile pictures
	"avatar",     // avatar assets
	"rsrc.php",   // static platform resources
	"safe_image", // link-preview proxy
	"platform/",  // platform chrome
	"ads/image/", // placeholder snapshot images
}

// creativeMarkers identify URLs that very likely point at the full-size
// creative (high-resolution path segments or full-size suffix markers).
var creativeMarkers = []string{
	"_n.",
	"_o.",
	"p720x720",
	"p960x960",
	"p1080x",
	"s960x",
}

// IsCDNHost reports whether the URL points at a known creative CDN host.
func IsCDNHost(rawURL string) bool {
	for _, host := range cdnHosts {
		if strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}

// IsVideoURL reports whether the URL carries a known video file extension.
// The query string is ignored so signed CDN URLs still match.
func IsVideoURL(rawURL string) bool {
	path := rawURL
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	lower := strings.ToLower(path)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) || strings.Contains(strings.ToLower(rawURL), ext) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether the URL matches any of the thumbnail, emoji,
// profile or UI-chrome markers that disqualify it as a creative candidate.
func IsExcluded(rawURL string) bool {
	for _, marker := range excludedMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

// IsLikelyCreative reports whether the URL carries a high-resolution marker
// implying it is the full-size creative rather than a derived rendition.
func IsLikelyCreative(rawURL string) bool {
	for _, marker := range creativeMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

// AcceptImage applies the full image candidate filter: must be on a known
// CDN host and must not match any exclusion marker.
func AcceptImage(rawURL string) bool {
	return IsCDNHost(rawURL) && !IsExcluded(rawURL)
}

// DecodeEscaped decodes URLs lifted out of embedded JSON blobs, where
// ampersands arrive as \u0026 and slashes as \/. Remaining stray
// backslashes are stripped.
func DecodeEscaped(raw string) string {
	s := strings.ReplaceAll(raw, `\u0026`, "&")
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `\`, "")
	return s
}
