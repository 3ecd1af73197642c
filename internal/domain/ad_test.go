package domain

import (
	"testing"
	"time"
)

func TestApplyResolutionMonotonicConfidence(t *testing.T) {
	tests := []struct {
		name       string
		existing   *ResolvedMedia
		incoming   ResolvedMedia
		forced     bool
		wantApply  bool
		wantSource ExtractionSource
	}{
		{
			name:       "unresolved ad accepts anything",
			existing:   nil,
			incoming:   ResolvedMedia{URL: "https://cdn/a.jpg", Type: MediaTypeImage, Source: SourceScreenshot},
			wantApply:  true,
			wantSource: SourceScreenshot,
		},
		{
			name:       "screenshot never downgrades a real URL",
			existing:   &ResolvedMedia{URL: "https://cdn/a.mp4", Type: MediaTypeVideo, Source: SourceNetworkObserved},
			incoming:   ResolvedMedia{URL: "data:image/jpeg;base64,xx", Type: MediaTypeScreenshot, Source: SourceScreenshot},
			wantApply:  false,
			wantSource: SourceNetworkObserved,
		},
		{
			name:       "real URL upgrades a screenshot",
			existing:   &ResolvedMedia{URL: "data:image/jpeg;base64,xx", Type: MediaTypeScreenshot, Source: SourceScreenshot},
			incoming:   ResolvedMedia{URL: "https://cdn/a.jpg", Type: MediaTypeImage, Source: SourceDOMImgTag},
			wantApply:  true,
			wantSource: SourceDOMImgTag,
		},
		{
			name:       "managed job upgrades network observation",
			existing:   &ResolvedMedia{URL: "https://cdn/a.jpg", Type: MediaTypeImage, Source: SourceNetworkObserved},
			incoming:   ResolvedMedia{URL: "https://store/a.jpg", Type: MediaTypeImage, Source: SourceManagedJob},
			wantApply:  true,
			wantSource: SourceManagedJob,
		},
		{
			name:       "fallback does not replace managed job automatically",
			existing:   &ResolvedMedia{URL: "https://store/a.jpg", Type: MediaTypeImage, Source: SourceManagedJob},
			incoming:   ResolvedMedia{URL: "https://cdn/b.jpg", Type: MediaTypeImage, Source: SourceNetworkFallback},
			wantApply:  false,
			wantSource: SourceManagedJob,
		},
		{
			name:       "forced merge always applies",
			existing:   &ResolvedMedia{URL: "https://store/a.jpg", Type: MediaTypeImage, Source: SourceManagedJob},
			incoming:   ResolvedMedia{URL: "data:image/jpeg;base64,xx", Type: MediaTypeScreenshot, Source: SourceScreenshot},
			forced:     true,
			wantApply:  true,
			wantSource: SourceScreenshot,
		},
		{
			name:      "empty URL never applies",
			existing:  nil,
			incoming:  ResolvedMedia{URL: "", Type: MediaTypeImage, Source: SourceDOMImgTag},
			wantApply: false,
		},
		{
			name:      "unknown type never applies",
			existing:  nil,
			incoming:  ResolvedMedia{URL: "https://cdn/a.jpg", Type: MediaTypeUnknown, Source: SourceDOMImgTag},
			wantApply: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := &AdRecord{ID: "ad-1", SnapshotURL: "https://snapshot/1", Media: tt.existing}

			got := ad.ApplyResolution(tt.incoming, tt.forced)
			if got != tt.wantApply {
				t.Errorf("ApplyResolution() = %v, want %v", got, tt.wantApply)
			}
			if tt.wantApply && ad.Media.Source != tt.wantSource {
				t.Errorf("media source = %v, want %v", ad.Media.Source, tt.wantSource)
			}
			if !tt.wantApply && tt.existing != nil && ad.Media.Source != tt.existing.Source {
				t.Errorf("existing media was modified: %v", ad.Media)
			}
		})
	}
}

func TestAdRecordIsActive(t *testing.T) {
	stop := time.Now()

	active := &AdRecord{ID: "a"}
	if !active.IsActive() {
		t.Error("ad without stop time should be active")
	}

	stopped := &AdRecord{ID: "b", StopTime: &stop}
	if stopped.IsActive() {
		t.Error("ad with stop time should not be active")
	}
}

func TestBatchJobStatusTerminal(t *testing.T) {
	terminal := []BatchJobStatus{BatchJobSucceeded, BatchJobFailed, BatchJobAborted, BatchJobTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	for _, s := range []BatchJobStatus{BatchJobReady, BatchJobRunning} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
