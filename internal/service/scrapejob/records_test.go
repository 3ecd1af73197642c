package scrapejob

import (
	"encoding/json"
	"testing"

	"adscope/internal/domain"
)

func TestScrapedRecordUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantID   string
		wantURL  string
		wantType domain.MediaType
		wantNone bool
	}{
		{
			name:     "video object with hd variant",
			payload:  `{"id":"123","videos":[{"hd_src":"https://v.example/hd.mp4","sd_src":"https://v.example/sd.mp4"}]}`,
			wantID:   "123",
			wantURL:  "https://v.example/hd.mp4",
			wantType: domain.MediaTypeVideo,
		},
		{
			name:     "video object falls back to sd",
			payload:  `{"id":"124","videos":[{"sd_src":"https://v.example/sd.mp4"}]}`,
			wantID:   "124",
			wantURL:  "https://v.example/sd.mp4",
			wantType: domain.MediaTypeVideo,
		},
		{
			name:     "video as bare string",
			payload:  `{"adArchiveID":"125","videos":["https://v.example/clip.mp4"]}`,
			wantID:   "125",
			wantURL:  "https://v.example/clip.mp4",
			wantType: domain.MediaTypeVideo,
		},
		{
			name:     "single image prefers original src",
			payload:  `{"id":"126","images":[{"original_src":"https://i.example/orig.jpg","resized_src":"https://i.example/small.jpg"}]}`,
			wantID:   "126",
			wantURL:  "https://i.example/orig.jpg",
			wantType: domain.MediaTypeImage,
		},
		{
			name:     "multiple images become a carousel",
			payload:  `{"id":"127","images":["https://i.example/a.jpg","https://i.example/b.jpg"]}`,
			wantID:   "127",
			wantURL:  "https://i.example/a.jpg",
			wantType: domain.MediaTypeDynamicImage,
		},
		{
			name:     "cards force carousel even with one image",
			payload:  `{"id":"128","cards":[{},{},{}],"images":["https://i.example/a.jpg"]}`,
			wantID:   "128",
			wantURL:  "https://i.example/a.jpg",
			wantType: domain.MediaTypeDynamicImage,
		},
		{
			name:     "video outranks images",
			payload:  `{"id":"129","videos":["https://v.example/clip.mp4"],"images":["https://i.example/a.jpg","https://i.example/b.jpg"]}`,
			wantID:   "129",
			wantURL:  "https://v.example/clip.mp4",
			wantType: domain.MediaTypeVideo,
		},
		{
			name:     "record with no media",
			payload:  `{"id":"130","body":{"text":"copy only"}}`,
			wantID:   "130",
			wantNone: true,
		},
		{
			name:     "empty variant entries are skipped",
			payload:  `{"id":"131","videos":[""],"images":[{}]}`,
			wantID:   "131",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec ScrapedRecord
			if err := json.Unmarshal([]byte(tt.payload), &rec); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if rec.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", rec.ID, tt.wantID)
			}

			url, mediaType, ok := rec.BestMedia()
			if tt.wantNone {
				if ok {
					t.Fatalf("expected no media, got %q", url)
				}
				return
			}
			if !ok {
				t.Fatal("expected media, got none")
			}
			if url != tt.wantURL {
				t.Errorf("URL = %q, want %q", url, tt.wantURL)
			}
			if mediaType != tt.wantType {
				t.Errorf("type = %q, want %q", mediaType, tt.wantType)
			}
		})
	}
}

func TestScrapedRecordBodyShapes(t *testing.T) {
	var asString ScrapedRecord
	if err := json.Unmarshal([]byte(`{"id":"1","body":"plain copy"}`), &asString); err != nil {
		t.Fatal(err)
	}
	if asString.Body != "plain copy" {
		t.Errorf("Body = %q", asString.Body)
	}

	var asObject ScrapedRecord
	if err := json.Unmarshal([]byte(`{"id":"2","body":{"text":"nested copy"}}`), &asObject); err != nil {
		t.Fatal(err)
	}
	if asObject.Body != "nested copy" {
		t.Errorf("Body = %q", asObject.Body)
	}
}
