package scrapejob

import (
	"encoding/json"

	"adscope/internal/domain"
)

// ScrapedRecord is one dataset item produced by the runner. Field shapes
// drift between actor versions: media lists arrive either as bare URL
// strings or as objects with per-quality variants, and the ad identifier
// has appeared under two different keys. Unmarshalling tolerates all of
// those shapes.
type ScrapedRecord struct {
	ID       string
	PageName string
	Body     string
	Videos   []mediaVariant
	Images   []mediaVariant
	Cards    int
}

type mediaVariant struct {
	HD       string
	SD       string
	URL      string
	Original string
	Resized  string
}

func (r *ScrapedRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string            `json:"id"`
		AdArchiveID string            `json:"adArchiveID"`
		PageName    string            `json:"pageName"`
		Body        json.RawMessage   `json:"body"`
		Videos      []json.RawMessage `json:"videos"`
		Images      []json.RawMessage `json:"images"`
		Cards       []json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = raw.ID
	if r.ID == "" {
		r.ID = raw.AdArchiveID
	}
	r.PageName = raw.PageName
	r.Body = decodeBody(raw.Body)
	r.Cards = len(raw.Cards)

	for _, v := range raw.Videos {
		if mv, ok := decodeVariant(v); ok {
			r.Videos = append(r.Videos, mv)
		}
	}
	for _, v := range raw.Images {
		if mv, ok := decodeVariant(v); ok {
			r.Images = append(r.Images, mv)
		}
	}
	return nil
}

// decodeVariant accepts a bare URL string or a variant object.
func decodeVariant(data json.RawMessage) (mediaVariant, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return mediaVariant{}, false
		}
		return mediaVariant{URL: s}, true
	}

	var obj struct {
		HDSrc       string `json:"hd_src"`
		SDSrc       string `json:"sd_src"`
		URL         string `json:"url"`
		OriginalSrc string `json:"original_src"`
		ResizedSrc  string `json:"resized_src"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return mediaVariant{}, false
	}
	mv := mediaVariant{
		HD:       obj.HDSrc,
		SD:       obj.SDSrc,
		URL:      obj.URL,
		Original: obj.OriginalSrc,
		Resized:  obj.ResizedSrc,
	}
	if mv.HD == "" && mv.SD == "" && mv.URL == "" && mv.Original == "" && mv.Resized == "" {
		return mediaVariant{}, false
	}
	return mv, true
}

// decodeBody tolerates the body arriving as a string or as {"text": ...}.
func decodeBody(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.Text
	}
	return ""
}

// BestMedia picks the richest media URL a record offers. Videos win over
// images, HD wins over SD, and the original image wins over resized
// copies. A record with several images or cards but no video is a
// carousel, reported as DYNAMIC_IMAGE using its first image.
func (r *ScrapedRecord) BestMedia() (string, domain.MediaType, bool) {
	for _, v := range r.Videos {
		if u := firstNonEmpty(v.HD, v.SD, v.URL); u != "" {
			return u, domain.MediaTypeVideo, true
		}
	}

	mt := domain.MediaTypeImage
	if len(r.Images) > 1 || r.Cards > 1 {
		mt = domain.MediaTypeDynamicImage
	}
	for _, v := range r.Images {
		if u := firstNonEmpty(v.Original, v.Resized, v.URL); u != "" {
			return u, mt, true
		}
	}
	return "", domain.MediaTypeUnknown, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
