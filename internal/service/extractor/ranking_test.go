package extractor

import (
	"testing"

	"adscope/internal/domain"
)

func TestSelectCandidate(t *testing.T) {
	netVideo := domain.Candidate{URL: "https://video.fbcdn.net/net.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceNetworkObserved}
	domVideo := domain.Candidate{URL: "https://video.fbcdn.net/dom.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceDOMVideoTag}
	jsonVideo := domain.Candidate{URL: "https://video.fbcdn.net/json.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceDOMEmbeddedJSON}
	jsonImage := domain.Candidate{URL: "https://scontent.xx.fbcdn.net/json_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMEmbeddedJSON}
	netImage := domain.Candidate{URL: "https://scontent.xx.fbcdn.net/net_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved}
	domImage := domain.Candidate{URL: "https://scontent.xx.fbcdn.net/dom_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag, SizeHint: 250000}
	metaImage := domain.Candidate{URL: "https://scontent.xx.fbcdn.net/meta_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceMetaTagFallback}
	shot := domain.Candidate{URL: "data:image/jpeg;base64,AAAA", Type: domain.MediaTypeScreenshot, Source: domain.SourceScreenshot}

	tests := []struct {
		name string
		pool []domain.Candidate
		want string
		none bool
	}{
		{
			name: "network video beats everything",
			pool: []domain.Candidate{shot, domImage, jsonImage, jsonVideo, domVideo, netVideo},
			want: netVideo.URL,
		},
		{
			name: "dom video tag beats embedded json video",
			pool: []domain.Candidate{jsonVideo, domVideo},
			want: domVideo.URL,
		},
		{
			name: "any video beats any image",
			pool: []domain.Candidate{jsonImage, netImage, domImage, jsonVideo},
			want: jsonVideo.URL,
		},
		{
			name: "embedded json image beats network image",
			pool: []domain.Candidate{netImage, jsonImage},
			want: jsonImage.URL,
		},
		{
			name: "network image beats dom img tag",
			pool: []domain.Candidate{domImage, netImage},
			want: netImage.URL,
		},
		{
			name: "meta tag only wins when nothing else survives",
			pool: []domain.Candidate{metaImage, shot},
			want: metaImage.URL,
		},
		{
			name: "screenshot is the last resort",
			pool: []domain.Candidate{shot},
			want: shot.URL,
		},
		{
			name: "empty pool yields nothing",
			pool: nil,
			none: true,
		},
		{
			name: "pool of excluded network images yields nothing",
			pool: []domain.Candidate{
				{URL: "https://scontent.xx.fbcdn.net/profile_s.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
			},
			none: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectCandidate(tt.pool)
			if tt.none {
				if ok {
					t.Fatalf("expected no winner, got %q", got.URL)
				}
				return
			}
			if !ok {
				t.Fatal("expected a winner, got none")
			}
			if got.URL != tt.want {
				t.Errorf("winner = %q, want %q", got.URL, tt.want)
			}
		})
	}
}

func TestSelectCandidateNetworkImageHeuristics(t *testing.T) {
	pool := []domain.Candidate{
		{URL: "https://static.xx.fbcdn.net/rsrc.php/sprite.png", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/v/plain.jpg?oh=aaaaaaaaaaaaaaaaaaaaaaaa", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/v/creative_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/t/profile_avatar.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
	}

	got, ok := selectCandidate(pool)
	if !ok {
		t.Fatal("expected a winner")
	}
	// The creative marker outranks a longer URL without one, and the
	// sprite and avatar never survive the exclusion filter.
	want := "https://scontent.xx.fbcdn.net/v/creative_n.jpg"
	if got.URL != want {
		t.Errorf("winner = %q, want %q", got.URL, want)
	}
	if got.Source != domain.SourceNetworkObserved {
		t.Errorf("source = %q, want %q", got.Source, domain.SourceNetworkObserved)
	}
}

func TestSelectCandidateLongestURLTiebreak(t *testing.T) {
	pool := []domain.Candidate{
		{URL: "https://scontent.xx.fbcdn.net/v/a_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/v/b_n.jpg?stp=dst-jpg_p1080x1080&cb=signed", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
	}

	got, ok := selectCandidate(pool)
	if !ok {
		t.Fatal("expected a winner")
	}
	if got.URL != pool[1].URL {
		t.Errorf("winner = %q, want the longer URL", got.URL)
	}
}

func TestSelectCandidateDeterminism(t *testing.T) {
	pool := []domain.Candidate{
		{URL: "https://scontent.xx.fbcdn.net/v/one_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/v/two_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceNetworkObserved},
		{URL: "https://scontent.xx.fbcdn.net/v/dom.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag, SizeHint: 500000},
	}

	first, ok := selectCandidate(pool)
	if !ok {
		t.Fatal("expected a winner")
	}
	for i := 0; i < 50; i++ {
		again, ok := selectCandidate(pool)
		if !ok || again.URL != first.URL {
			t.Fatalf("selection is not deterministic: run %d picked %q, first run picked %q", i, again.URL, first.URL)
		}
	}
}

func TestSelectCandidateLargestDOMImage(t *testing.T) {
	pool := []domain.Candidate{
		{URL: "https://scontent.xx.fbcdn.net/v/small.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag, SizeHint: 200000},
		{URL: "https://scontent.xx.fbcdn.net/v/large.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag, SizeHint: 800000},
		{URL: "https://scontent.xx.fbcdn.net/v/medium.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag, SizeHint: 400000},
	}

	got, ok := selectCandidate(pool)
	if !ok {
		t.Fatal("expected a winner")
	}
	if got.URL != "https://scontent.xx.fbcdn.net/v/large.jpg" {
		t.Errorf("winner = %q, want the largest rendered image", got.URL)
	}
}
