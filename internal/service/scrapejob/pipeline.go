package scrapejob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"adscope/internal/domain"
	"adscope/internal/pkg/metrics"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 30

	maxDownloadBytes = 50 << 20
)

// Target is one ad the pipeline should resolve.
type Target struct {
	AdID        string
	SnapshotURL string
}

// ProgressFunc receives (completed, total) after each ad is finalized.
type ProgressFunc func(done, total int)

// Pipeline runs a full batch resolution: submit the runner job, poll it
// to a terminal state, fetch the dataset once, rank each record's media,
// copy the winner to durable storage, and persist the outcome per ad.
//
// Storage and persistence failures degrade individual ads but never
// abort the batch; only the runner job itself failing is fatal.
type Pipeline struct {
	client  *Client
	storage domain.ObjectStorage
	ads     domain.AdRepository
	metrics *metrics.Metrics
	logger  *slog.Logger

	pollInterval time.Duration
	maxPolls     int
	downloader   *http.Client
}

func NewPipeline(client *Client, storage domain.ObjectStorage, ads domain.AdRepository, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		client:       client,
		storage:      storage,
		ads:          ads,
		metrics:      m,
		logger:       logger,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		downloader:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Run resolves a batch of ads and returns the per-ad results keyed by ad
// ID. One run covers the whole competitor page: the actor crawls the
// ads-library listing for pageID and the dataset is matched back to the
// targets by ad id. Ads missing from the dataset simply have no entry in
// the map.
func (p *Pipeline) Run(ctx context.Context, pageID string, targets []Target, progress ProgressFunc) (map[string]domain.BatchResult, error) {
	if len(targets) == 0 {
		return map[string]domain.BatchResult{}, nil
	}

	job, err := p.client.Submit(ctx, []string{LibraryPageURL(pageID)}, len(targets))
	if err != nil {
		return nil, err
	}

	job, err = p.awaitCompletion(ctx, job)
	if err != nil {
		p.countBatch(string(job.Status))
		return nil, err
	}
	p.countBatch(string(domain.BatchJobSucceeded))

	records, err := p.client.FetchResults(ctx, job.ResultLocator)
	if err != nil {
		return nil, fmt.Errorf("fetching batch results: %w", err)
	}

	byID := make(map[string]*ScrapedRecord, len(records))
	for i := range records {
		if records[i].ID != "" {
			byID[records[i].ID] = &records[i]
		}
	}

	results := make(map[string]domain.BatchResult)
	for done, t := range targets {
		if rec, ok := byID[t.AdID]; ok {
			if res, ok := p.finalize(ctx, t.AdID, rec); ok {
				results[t.AdID] = res
			}
		}
		if progress != nil {
			progress(done+1, len(targets))
		}
	}

	p.logger.Info("batch resolution finished",
		"run_id", job.JobID,
		"targets", len(targets),
		"resolved", len(results))
	return results, nil
}

// awaitCompletion polls the run until it reaches a terminal state or the
// poll ceiling is hit.
func (p *Pipeline) awaitCompletion(ctx context.Context, job domain.BatchJob) (domain.BatchJob, error) {
	for poll := 0; poll < p.maxPolls; poll++ {
		if job.Status.Terminal() {
			break
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(p.pollInterval):
		}

		refreshed, err := p.client.Status(ctx, job.JobID)
		if err != nil {
			p.logger.Warn("run status poll failed", "run_id", job.JobID, "error", err)
			continue
		}
		job = refreshed
	}

	switch job.Status {
	case domain.BatchJobSucceeded:
		return job, nil
	case domain.BatchJobFailed:
		return job, fmt.Errorf("run %s: %w", job.JobID, domain.ErrJobFailed)
	case domain.BatchJobAborted:
		return job, fmt.Errorf("run %s: %w", job.JobID, domain.ErrJobAborted)
	default:
		last := job.Status
		job.Status = domain.BatchJobTimedOut
		return job, fmt.Errorf("run %s still %s after %d polls: %w",
			job.JobID, last, p.maxPolls, domain.ErrJobTimedOut)
	}
}

// finalize ranks a record's media, attempts the durable copy, and
// persists whatever URL survived.
func (p *Pipeline) finalize(ctx context.Context, adID string, rec *ScrapedRecord) (domain.BatchResult, bool) {
	mediaURL, mediaType, ok := rec.BestMedia()
	if !ok {
		return domain.BatchResult{}, false
	}

	result := domain.BatchResult{MediaURL: mediaURL, MediaType: mediaType}

	if p.storage != nil {
		if durableURL, err := p.copyDurable(ctx, adID, mediaURL, mediaType); err != nil {
			// The ephemeral CDN URL still works for a while; keep it.
			p.logger.Warn("durable copy failed, keeping ephemeral URL",
				"ad_id", adID, "error", err)
		} else {
			result.MediaURL = durableURL
			result.Durable = true
			if p.metrics != nil {
				p.metrics.BatchAdsCopied.Inc()
			}
		}
	}

	if p.ads != nil {
		media := domain.ResolvedMedia{
			URL:    result.MediaURL,
			Type:   result.MediaType,
			Source: domain.SourceManagedJob,
		}
		if err := p.ads.UpdateMedia(ctx, adID, media); err != nil {
			p.logger.Error("persisting resolved media failed", "ad_id", adID, "error", err)
		}
	}

	return result, true
}

// copyDurable downloads the media and re-uploads it to object storage,
// returning the public URL of the copy.
func (p *Pipeline) copyDurable(ctx context.Context, adID, mediaURL string, mediaType domain.MediaType) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}

	resp, err := p.downloader.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", fmt.Errorf("reading media body: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("media download was empty")
	}

	contentType := resp.Header.Get("Content-Type")
	objectPath := fmt.Sprintf("ads/%s%s", adID, objectExt(mediaURL, mediaType, contentType))

	publicURL, err := p.storage.Upload(ctx, data, objectPath, contentType)
	if err != nil {
		return "", fmt.Errorf("uploading media copy: %w", err)
	}
	return publicURL, nil
}

func (p *Pipeline) countBatch(status string) {
	if p.metrics != nil {
		p.metrics.BatchJobs.WithLabelValues(status).Inc()
	}
}

func objectExt(mediaURL string, mediaType domain.MediaType, contentType string) string {
	if ext := path.Ext(strings.SplitN(path.Base(mediaURL), "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch {
	case mediaType == domain.MediaTypeVideo:
		return ".mp4"
	case strings.Contains(contentType, "png"):
		return ".png"
	default:
		return ".jpg"
	}
}
