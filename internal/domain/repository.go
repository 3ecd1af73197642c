package domain

import (
	"context"
	"time"
)

// Competitor is a tracked advertiser page. Ads belong to the competitor
// aggregate; the resolution engine never persists ads itself.
type Competitor struct {
	ID           string     `json:"id" db:"id"` // external page id
	Name         string     `json:"name" db:"name"`
	PictureURL   *string    `json:"picture_url" db:"picture_url"`
	LastSyncedAt *time.Time `json:"last_synced_at" db:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// AdRepository defines durable storage for ad records. Media persistence
// failures for one record must not abort processing of the rest, so
// UpsertAd and UpdateMedia are single-record operations.
type AdRepository interface {
	// GetByID retrieves one ad by its external id.
	GetByID(ctx context.Context, id string) (*AdRecord, error)

	// ListByPage retrieves ads for a competitor page, newest first.
	ListByPage(ctx context.Context, pageID string, limit int) ([]*AdRecord, error)

	// UpsertAd inserts or updates an ad keyed by its external id. An
	// existing resolved media reference is preserved when the incoming
	// record carries none.
	UpsertAd(ctx context.Context, ad *AdRecord) error

	// UpdateMedia sets the resolved media reference for an ad.
	UpdateMedia(ctx context.Context, id string, media ResolvedMedia) error
}

// CompetitorRepository defines durable storage for tracked competitors.
type CompetitorRepository interface {
	GetByID(ctx context.Context, id string) (*Competitor, error)
	List(ctx context.Context) ([]*Competitor, error)
	Create(ctx context.Context, competitor *Competitor) error
	Delete(ctx context.Context, id string) error

	// MarkSynced records a completed batch sync for a competitor.
	MarkSynced(ctx context.Context, id string, at time.Time) error
}

// ObjectStorage uploads media bytes to owned storage and returns a public
// URL. Used only by the batch pipeline's durable-copy step.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, path, contentType string) (string, error)
}

// QueueRepository defines the interface for background job queue operations.
type QueueRepository interface {
	// Enqueue adds a new job to the queue
	Enqueue(ctx context.Context, jobType string, payload interface{}) error

	// Dequeue retrieves the next job from the queue
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt *string                `json:"updated_at"`
}

// Job types
const (
	JobTypeResolveMedia   = "resolve_media"   // single-ad resolution through the strategy chain
	JobTypeSyncCompetitor = "sync_competitor" // full managed-scrape pipeline for one competitor
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
