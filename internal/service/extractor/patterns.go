package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"adscope/internal/domain"
	"adscope/internal/pkg/mediaurl"
)

// Embedded-JSON patterns searched against raw page markup and inline
// script bodies. Order matters: video_hd_url outranks the playable
// variants, and named image keys outrank the bare "uri" key, so the
// first pattern that matches wins within its media type.
var (
	videoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"video_hd_url":"(https:[^"]+\.mp4[^"]*)"`),
		regexp.MustCompile(`"playable_url":"(https:[^"]+\.mp4[^"]*)"`),
		regexp.MustCompile(`"playable_url_quality_hd":"(https:[^"]+\.mp4[^"]*)"`),
	}

	imagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"original_image_url":"(https:[^"]+?\.(?:jpg|jpeg|png|webp)[^"]*)"`),
		regexp.MustCompile(`"image_url":"(https:[^"]+?\.(?:jpg|jpeg|png|webp)[^"]*)"`),
		regexp.MustCompile(`"uri":"(https:[^"]*fbcdn[^"]+?\.(?:jpg|jpeg|png|webp)[^"]*)"`),
	}
)

// extractEmbeddedCandidates scans markup for media URLs serialized inside
// embedded JSON blobs. Matches come back already unescaped. Videos are
// emitted before images so positional order agrees with selection order.
func extractEmbeddedCandidates(markup string) []domain.Candidate {
	var out []domain.Candidate
	seen := make(map[string]bool)

	add := func(raw string, mt domain.MediaType) {
		u := mediaurl.DecodeEscaped(raw)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, domain.Candidate{
			URL:    u,
			Type:   mt,
			Source: domain.SourceDOMEmbeddedJSON,
		})
	}

	for _, re := range videoPatterns {
		for _, m := range re.FindAllStringSubmatch(markup, -1) {
			add(m[1], domain.MediaTypeVideo)
		}
	}
	for _, re := range imagePatterns {
		for _, m := range re.FindAllStringSubmatch(markup, -1) {
			u := mediaurl.DecodeEscaped(m[1])
			if !mediaurl.AcceptImage(u) {
				continue
			}
			add(m[1], domain.MediaTypeImage)
		}
	}
	return out
}

// parseStaticMarkup walks an HTML document fetched without a rendering
// engine and collects <img> and <meta> candidates. Rendered dimensions
// are unavailable here, so declared width/height attributes stand in as
// the size hint when present.
func parseStaticMarkup(markup string) []domain.Candidate {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []domain.Candidate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				if c, ok := imgCandidate(n); ok {
					out = append(out, c)
				}
			case "meta":
				if c, ok := metaImageCandidate(n); ok {
					out = append(out, c)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return out
}

func imgCandidate(n *html.Node) (domain.Candidate, bool) {
	var src string
	var w, h int
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			src = a.Val
		case "width":
			w, _ = strconv.Atoi(a.Val)
		case "height":
			h, _ = strconv.Atoi(a.Val)
		}
	}
	src = mediaurl.DecodeEscaped(src)
	if !mediaurl.AcceptImage(src) {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		URL:      src,
		Type:     domain.MediaTypeImage,
		Source:   domain.SourceDOMImgTag,
		SizeHint: w * h,
	}, true
}

func metaImageCandidate(n *html.Node) (domain.Candidate, bool) {
	var prop, content string
	for _, a := range n.Attr {
		switch a.Key {
		case "property", "name":
			prop = a.Val
		case "content":
			content = a.Val
		}
	}
	if prop != "og:image" && prop != "twitter:image" {
		return domain.Candidate{}, false
	}
	content = mediaurl.DecodeEscaped(content)
	if content == "" || !strings.HasPrefix(content, "http") {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		URL:    content,
		Type:   domain.MediaTypeImage,
		Source: domain.SourceMetaTagFallback,
	}, true
}
