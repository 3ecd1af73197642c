package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"adscope/internal/domain"
	"adscope/internal/service/extractor"
	"adscope/internal/service/scrapejob"
)

const syncListLimit = 1500

// MediaResolver runs the strategy chain for one ad.
type MediaResolver interface {
	Resolve(ctx context.Context, adID, snapshotURL string, forceRefresh bool) (domain.ResolvedMedia, error)
}

// BatchRunner runs the managed scrape pipeline over a competitor page.
type BatchRunner interface {
	Run(ctx context.Context, pageID string, targets []scrapejob.Target, progress scrapejob.ProgressFunc) (map[string]domain.BatchResult, error)
}

// ArchiveFetcher pulls a competitor's ad catalog.
type ArchiveFetcher interface {
	FetchPageAds(ctx context.Context, pageID string) ([]*domain.AdRecord, error)
}

// JobProcessor handles different types of background jobs
type JobProcessor struct {
	logger      *slog.Logger
	resolver    MediaResolver
	pipeline    BatchRunner
	archive     ArchiveFetcher
	ads         domain.AdRepository
	competitors domain.CompetitorRepository
	browser     *extractor.BrowserHandle
	notifier    *notifier
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	logger *slog.Logger,
	resolver MediaResolver,
	pipeline BatchRunner,
	archive ArchiveFetcher,
	ads domain.AdRepository,
	competitors domain.CompetitorRepository,
	browser *extractor.BrowserHandle,
) *JobProcessor {
	return &JobProcessor{
		logger:      logger,
		resolver:    resolver,
		pipeline:    pipeline,
		archive:     archive,
		ads:         ads,
		competitors: competitors,
		browser:     browser,
	}
}

// Close releases resources held across jobs.
func (p *JobProcessor) Close() {
	if p.browser != nil {
		p.browser.Close()
	}
}

// ProcessResolveMedia resolves media for a single ad through the
// strategy chain and merges the outcome into the stored record.
func (p *JobProcessor) ProcessResolveMedia(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	adID, ok := payload["ad_id"].(string)
	if !ok || adID == "" {
		return fmt.Errorf("missing or invalid ad_id in payload")
	}
	forceRefresh, _ := payload["force_refresh"].(bool)

	ad, err := p.ads.GetByID(ctx, adID)
	if err != nil {
		return fmt.Errorf("loading ad %s: %w", adID, err)
	}
	if ad.SnapshotURL == "" {
		return fmt.Errorf("ad %s has no snapshot url", adID)
	}

	media, err := p.resolver.Resolve(ctx, adID, ad.SnapshotURL, forceRefresh)
	if errors.Is(err, domain.ErrResolveInProgress) {
		logger.Info("Resolution already in flight, skipping", "ad_id", adID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving ad %s: %w", adID, err)
	}

	if !ad.ApplyResolution(media, forceRefresh) {
		logger.Info("Resolution did not improve stored media",
			"ad_id", adID,
			"type", media.Type,
		)
		return nil
	}

	if err := p.ads.UpdateMedia(ctx, adID, *ad.Media); err != nil {
		return fmt.Errorf("persisting media for ad %s: %w", adID, err)
	}

	logger.Info("Ad media updated",
		"ad_id", adID,
		"type", ad.Media.Type,
		"source", ad.Media.Source,
	)
	return nil
}

// ProcessSyncCompetitor refreshes one competitor's catalog from the ad
// archive, then runs the batch pipeline over every ad still missing
// media.
func (p *JobProcessor) ProcessSyncCompetitor(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	pageID, ok := payload["page_id"].(string)
	if !ok || pageID == "" {
		return fmt.Errorf("missing or invalid page_id in payload")
	}

	if p.archive == nil {
		return fmt.Errorf("archive client not configured")
	}

	competitor, err := p.competitors.GetByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("loading competitor %s: %w", pageID, err)
	}

	fetched, err := p.archive.FetchPageAds(ctx, pageID)
	if err != nil {
		return fmt.Errorf("fetching archive for %s: %w", pageID, err)
	}

	upserted := 0
	for _, ad := range fetched {
		if err := p.ads.UpsertAd(ctx, ad); err != nil {
			logger.Warn("Failed to upsert ad", "ad_id", ad.ID, "error", err)
			continue
		}
		upserted++
	}

	targets, err := p.unresolvedTargets(ctx, pageID)
	if err != nil {
		return err
	}

	resolved := 0
	if len(targets) > 0 && p.pipeline != nil {
		results, err := p.pipeline.Run(ctx, pageID, targets, func(done, total int) {
			if done%10 == 0 || done == total {
				logger.Info("Batch resolution progress",
					"page_id", pageID,
					"done", done,
					"total", total,
				)
			}
		})
		if err != nil {
			// Metadata is already stored; the next sync retries media.
			logger.Error("Batch resolution failed", "page_id", pageID, "error", err)
		} else {
			resolved = len(results)
		}
	}

	if err := p.competitors.MarkSynced(ctx, pageID, time.Now()); err != nil {
		logger.Warn("Failed to mark competitor synced", "page_id", pageID, "error", err)
	}

	logger.Info("Competitor sync complete",
		"page_id", pageID,
		"fetched", len(fetched),
		"upserted", upserted,
		"media_resolved", resolved,
	)

	if p.notifier != nil {
		p.notifier.SyncComplete(competitor.Name, len(fetched), resolved)
	}
	return nil
}

// unresolvedTargets lists the competitor's stored ads that still lack
// media and can be resolved from a snapshot URL.
func (p *JobProcessor) unresolvedTargets(ctx context.Context, pageID string) ([]scrapejob.Target, error) {
	stored, err := p.ads.ListByPage(ctx, pageID, syncListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing ads for %s: %w", pageID, err)
	}

	var targets []scrapejob.Target
	for _, ad := range stored {
		if ad.Media != nil || ad.SnapshotURL == "" {
			continue
		}
		targets = append(targets, scrapejob.Target{AdID: ad.ID, SnapshotURL: ad.SnapshotURL})
	}
	return targets, nil
}
