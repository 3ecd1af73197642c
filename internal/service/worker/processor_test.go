package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"adscope/internal/domain"
	"adscope/internal/service/scrapejob"
)

type fakeResolver struct {
	media domain.ResolvedMedia
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, adID, snapshotURL string, forceRefresh bool) (domain.ResolvedMedia, error) {
	f.calls++
	return f.media, f.err
}

type fakePipeline struct {
	pageID  string
	targets []scrapejob.Target
	results map[string]domain.BatchResult
	err     error
}

func (f *fakePipeline) Run(ctx context.Context, pageID string, targets []scrapejob.Target, progress scrapejob.ProgressFunc) (map[string]domain.BatchResult, error) {
	f.pageID = pageID
	f.targets = targets
	return f.results, f.err
}

type fakeArchive struct {
	ads []*domain.AdRecord
	err error
}

func (f *fakeArchive) FetchPageAds(ctx context.Context, pageID string) ([]*domain.AdRecord, error) {
	return f.ads, f.err
}

type memAdRepo struct {
	ads     map[string]*domain.AdRecord
	updates map[string]domain.ResolvedMedia
}

func newMemAdRepo(ads ...*domain.AdRecord) *memAdRepo {
	repo := &memAdRepo{ads: make(map[string]*domain.AdRecord), updates: make(map[string]domain.ResolvedMedia)}
	for _, ad := range ads {
		repo.ads[ad.ID] = ad
	}
	return repo
}

func (m *memAdRepo) GetByID(ctx context.Context, id string) (*domain.AdRecord, error) {
	ad, ok := m.ads[id]
	if !ok {
		return nil, errors.New("ad not found")
	}
	copied := *ad
	return &copied, nil
}

func (m *memAdRepo) ListByPage(ctx context.Context, pageID string, limit int) ([]*domain.AdRecord, error) {
	var out []*domain.AdRecord
	for _, ad := range m.ads {
		if ad.PageID == pageID {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (m *memAdRepo) UpsertAd(ctx context.Context, ad *domain.AdRecord) error {
	if existing, ok := m.ads[ad.ID]; ok && existing.Media != nil && ad.Media == nil {
		copied := *ad
		copied.Media = existing.Media
		m.ads[ad.ID] = &copied
		return nil
	}
	copied := *ad
	m.ads[ad.ID] = &copied
	return nil
}

func (m *memAdRepo) UpdateMedia(ctx context.Context, id string, media domain.ResolvedMedia) error {
	m.updates[id] = media
	if ad, ok := m.ads[id]; ok {
		ad.Media = &media
	}
	return nil
}

type memCompetitorRepo struct {
	competitor *domain.Competitor
	synced     bool
}

func (m *memCompetitorRepo) GetByID(ctx context.Context, id string) (*domain.Competitor, error) {
	if m.competitor == nil {
		return nil, errors.New("competitor not found")
	}
	return m.competitor, nil
}

func (m *memCompetitorRepo) List(ctx context.Context) ([]*domain.Competitor, error) {
	return []*domain.Competitor{m.competitor}, nil
}

func (m *memCompetitorRepo) Create(ctx context.Context, c *domain.Competitor) error { return nil }
func (m *memCompetitorRepo) Delete(ctx context.Context, id string) error            { return nil }

func (m *memCompetitorRepo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	m.synced = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessResolveMedia(t *testing.T) {
	screenshotMedia := &domain.ResolvedMedia{
		URL:    "data:image/jpeg;base64,AAAA",
		Type:   domain.MediaTypeScreenshot,
		Source: domain.SourceScreenshot,
	}

	tests := []struct {
		name       string
		existing   *domain.ResolvedMedia
		resolved   domain.ResolvedMedia
		resolveErr error
		payload    map[string]interface{}
		wantErr    bool
		wantUpdate bool
	}{
		{
			name:       "resolves and persists",
			resolved:   domain.ResolvedMedia{URL: "https://video.fbcdn.net/a.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceDOMVideoTag},
			payload:    map[string]interface{}{"ad_id": "ad-1"},
			wantUpdate: true,
		},
		{
			name:     "in-flight duplicate is not an error",
			payload:  map[string]interface{}{"ad_id": "ad-1"},
			resolveErr: domain.ErrResolveInProgress,
		},
		{
			name:     "screenshot never replaces a real url",
			existing: &domain.ResolvedMedia{URL: "https://video.fbcdn.net/real.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceNetworkObserved},
			resolved: *screenshotMedia,
			payload:  map[string]interface{}{"ad_id": "ad-1"},
		},
		{
			name:       "forced refresh overwrites",
			existing:   &domain.ResolvedMedia{URL: "https://video.fbcdn.net/real.mp4", Type: domain.MediaTypeVideo, Source: domain.SourceManagedJob},
			resolved:   domain.ResolvedMedia{URL: "https://scontent.xx.fbcdn.net/new_n.jpg", Type: domain.MediaTypeImage, Source: domain.SourceDOMImgTag},
			payload:    map[string]interface{}{"ad_id": "ad-1", "force_refresh": true},
			wantUpdate: true,
		},
		{
			name:    "missing ad id",
			payload: map[string]interface{}{},
			wantErr: true,
		},
		{
			name:    "unknown ad",
			payload: map[string]interface{}{"ad_id": "nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemAdRepo(&domain.AdRecord{
				ID:          "ad-1",
				PageID:      "p1",
				SnapshotURL: "https://snapshot.example/1",
				Media:       tt.existing,
			})
			resolver := &fakeResolver{media: tt.resolved, err: tt.resolveErr}
			p := NewJobProcessor(testLogger(), resolver, nil, nil, repo, nil, nil)

			err := p.ProcessResolveMedia(context.Background(), tt.payload, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}

			_, updated := repo.updates["ad-1"]
			if updated != tt.wantUpdate {
				t.Errorf("updated = %v, want %v", updated, tt.wantUpdate)
			}
		})
	}
}

func TestProcessSyncCompetitor(t *testing.T) {
	resolvedMedia := &domain.ResolvedMedia{
		URL:    "https://storage.adscope.example/ads-media/ads/ad-old.jpg",
		Type:   domain.MediaTypeImage,
		Source: domain.SourceManagedJob,
	}
	repo := newMemAdRepo(&domain.AdRecord{
		ID:          "ad-old",
		PageID:      "p1",
		SnapshotURL: "https://snapshot.example/old",
		Media:       resolvedMedia,
	})
	archive := &fakeArchive{ads: []*domain.AdRecord{
		{ID: "ad-old", PageID: "p1", SnapshotURL: "https://snapshot.example/old"},
		{ID: "ad-new", PageID: "p1", SnapshotURL: "https://snapshot.example/new"},
	}}
	pipeline := &fakePipeline{results: map[string]domain.BatchResult{
		"ad-new": {MediaURL: "https://i.example/new.jpg", MediaType: domain.MediaTypeImage, Durable: true},
	}}
	competitors := &memCompetitorRepo{competitor: &domain.Competitor{ID: "p1", Name: "Acme"}}

	p := NewJobProcessor(testLogger(), &fakeResolver{}, pipeline, archive, repo, competitors, nil)

	payload := map[string]interface{}{"page_id": "p1"}
	if err := p.ProcessSyncCompetitor(context.Background(), payload, testLogger()); err != nil {
		t.Fatal(err)
	}

	// Only the ad without media goes to the batch pipeline.
	if pipeline.pageID != "p1" {
		t.Errorf("pipeline page id = %q, want %q", pipeline.pageID, "p1")
	}
	if len(pipeline.targets) != 1 || pipeline.targets[0].AdID != "ad-new" {
		t.Errorf("pipeline targets = %+v", pipeline.targets)
	}
	// The previously resolved ad keeps its media through the upsert.
	if repo.ads["ad-old"].Media == nil {
		t.Error("existing media was lost during sync")
	}
	if !competitors.synced {
		t.Error("competitor was not marked synced")
	}
}

func TestProcessSyncCompetitorPipelineFailureIsNotFatal(t *testing.T) {
	repo := newMemAdRepo()
	archive := &fakeArchive{ads: []*domain.AdRecord{
		{ID: "ad-1", PageID: "p1", SnapshotURL: "https://snapshot.example/1"},
	}}
	pipeline := &fakePipeline{err: domain.ErrJobFailed}
	competitors := &memCompetitorRepo{competitor: &domain.Competitor{ID: "p1", Name: "Acme"}}

	p := NewJobProcessor(testLogger(), &fakeResolver{}, pipeline, archive, repo, competitors, nil)

	payload := map[string]interface{}{"page_id": "p1"}
	if err := p.ProcessSyncCompetitor(context.Background(), payload, testLogger()); err != nil {
		t.Fatalf("pipeline failure should not fail the sync: %v", err)
	}
	if _, ok := repo.ads["ad-1"]; !ok {
		t.Error("metadata should be stored even when media resolution fails")
	}
	if !competitors.synced {
		t.Error("competitor should still be marked synced")
	}
}
