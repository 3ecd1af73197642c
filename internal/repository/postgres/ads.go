package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"adscope/internal/domain"
)

// AdRepository implements the domain.AdRepository interface using PostgreSQL
type AdRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAdRepository creates a new PostgreSQL ad repository
func NewAdRepository(db *sql.DB, logger *slog.Logger) *AdRepository {
	return &AdRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an ad by its external id
func (r *AdRepository) GetByID(ctx context.Context, id string) (*domain.AdRecord, error) {
	query := `
		SELECT id, page_id, page_name, body, snapshot_url,
		       creation_time, stop_time, reach,
		       media_url, media_type, media_source,
		       created_at, updated_at
		FROM ads
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	ad, err := scanAd(row)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Debug("Ad not found", "ad_id", id)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query ad",
			"error", err,
			"ad_id", id,
		)
		return nil, fmt.Errorf("failed to query ad: %w", err)
	}

	return ad, nil
}

// ListByPage retrieves ads for a competitor page, newest first
func (r *AdRepository) ListByPage(ctx context.Context, pageID string, limit int) ([]*domain.AdRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, page_id, page_name, body, snapshot_url,
		       creation_time, stop_time, reach,
		       media_url, media_type, media_source,
		       created_at, updated_at
		FROM ads
		WHERE page_id = $1
		ORDER BY creation_time DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, pageID, limit)
	if err != nil {
		r.logger.Error("Failed to list ads",
			"error", err,
			"page_id", pageID,
		)
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	var ads []*domain.AdRecord
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad row: %w", err)
		}
		ads = append(ads, ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ad rows: %w", err)
	}

	r.logger.Debug("Listed ads", "page_id", pageID, "count", len(ads))
	return ads, nil
}

// UpsertAd inserts or updates an ad keyed by its external id. The media
// columns are only overwritten when the incoming record carries media, so
// a metadata refresh never wipes out previously resolved media.
func (r *AdRepository) UpsertAd(ctx context.Context, ad *domain.AdRecord) error {
	query := `
		INSERT INTO ads (
			id, page_id, page_name, body, snapshot_url,
			creation_time, stop_time, reach,
			media_url, media_type, media_source,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			page_name    = EXCLUDED.page_name,
			body         = COALESCE(EXCLUDED.body, ads.body),
			snapshot_url = EXCLUDED.snapshot_url,
			stop_time    = EXCLUDED.stop_time,
			reach        = EXCLUDED.reach,
			media_url    = COALESCE(EXCLUDED.media_url, ads.media_url),
			media_type   = COALESCE(EXCLUDED.media_type, ads.media_type),
			media_source = COALESCE(EXCLUDED.media_source, ads.media_source),
			updated_at   = NOW()`

	var body interface{}
	if ad.Body != nil {
		body = *ad.Body
	}

	var stopTime interface{}
	if ad.StopTime != nil {
		stopTime = *ad.StopTime
	}

	var mediaURL, mediaType, mediaSource interface{}
	if ad.Media != nil {
		mediaURL = ad.Media.URL
		mediaType = string(ad.Media.Type)
		mediaSource = string(ad.Media.Source)
	}

	_, err := r.db.ExecContext(ctx, query,
		ad.ID,
		ad.PageID,
		ad.PageName,
		body,
		ad.SnapshotURL,
		ad.CreationTime,
		stopTime,
		ad.Reach,
		mediaURL,
		mediaType,
		mediaSource,
	)

	if err != nil {
		r.logger.Error("Failed to upsert ad",
			"error", err,
			"ad_id", ad.ID,
			"page_id", ad.PageID,
		)
		return fmt.Errorf("failed to upsert ad: %w", err)
	}

	r.logger.Debug("Ad upserted", "ad_id", ad.ID, "page_id", ad.PageID)
	return nil
}

// UpdateMedia sets the resolved media reference for an ad
func (r *AdRepository) UpdateMedia(ctx context.Context, id string, media domain.ResolvedMedia) error {
	query := `
		UPDATE ads
		SET media_url = $1, media_type = $2, media_source = $3, updated_at = NOW()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		media.URL,
		string(media.Type),
		string(media.Source),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update ad media",
			"error", err,
			"ad_id", id,
		)
		return fmt.Errorf("failed to update ad media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No ad found for media update", "ad_id", id)
		return fmt.Errorf("ad not found: %s", id)
	}

	r.logger.Info("Ad media updated",
		"ad_id", id,
		"media_type", media.Type,
		"media_source", media.Source,
	)
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanAd
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAd(row scanner) (*domain.AdRecord, error) {
	ad := &domain.AdRecord{}
	var body sql.NullString
	var stopTime, updatedAt sql.NullTime
	var mediaURL, mediaType, mediaSource sql.NullString

	err := row.Scan(
		&ad.ID,
		&ad.PageID,
		&ad.PageName,
		&body,
		&ad.SnapshotURL,
		&ad.CreationTime,
		&stopTime,
		&ad.Reach,
		&mediaURL,
		&mediaType,
		&mediaSource,
		&ad.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if body.Valid {
		ad.Body = &body.String
	}
	if stopTime.Valid {
		ad.StopTime = &stopTime.Time
	}
	if updatedAt.Valid {
		ad.UpdatedAt = &updatedAt.Time
	}
	if mediaURL.Valid && mediaURL.String != "" {
		ad.Media = &domain.ResolvedMedia{
			URL:    mediaURL.String,
			Type:   domain.MediaType(mediaType.String),
			Source: domain.ExtractionSource(mediaSource.String),
		}
	}

	return ad, nil
}

// CompetitorRepository implements the domain.CompetitorRepository interface using PostgreSQL
type CompetitorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCompetitorRepository creates a new PostgreSQL competitor repository
func NewCompetitorRepository(db *sql.DB, logger *slog.Logger) *CompetitorRepository {
	return &CompetitorRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a competitor by its page id
func (r *CompetitorRepository) GetByID(ctx context.Context, id string) (*domain.Competitor, error) {
	query := `
		SELECT id, name, picture_url, last_synced_at, created_at
		FROM competitors
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	competitor := &domain.Competitor{}
	var pictureURL sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&competitor.ID,
		&competitor.Name,
		&pictureURL,
		&lastSyncedAt,
		&competitor.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Debug("Competitor not found", "competitor_id", id)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query competitor",
			"error", err,
			"competitor_id", id,
		)
		return nil, fmt.Errorf("failed to query competitor: %w", err)
	}

	if pictureURL.Valid {
		competitor.PictureURL = &pictureURL.String
	}
	if lastSyncedAt.Valid {
		competitor.LastSyncedAt = &lastSyncedAt.Time
	}

	return competitor, nil
}

// List retrieves all tracked competitors
func (r *CompetitorRepository) List(ctx context.Context) ([]*domain.Competitor, error) {
	query := `
		SELECT id, name, picture_url, last_synced_at, created_at
		FROM competitors
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list competitors", "error", err)
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}
	defer rows.Close()

	var competitors []*domain.Competitor
	for rows.Next() {
		competitor := &domain.Competitor{}
		var pictureURL sql.NullString
		var lastSyncedAt sql.NullTime

		if err := rows.Scan(
			&competitor.ID,
			&competitor.Name,
			&pictureURL,
			&lastSyncedAt,
			&competitor.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan competitor row: %w", err)
		}

		if pictureURL.Valid {
			competitor.PictureURL = &pictureURL.String
		}
		if lastSyncedAt.Valid {
			competitor.LastSyncedAt = &lastSyncedAt.Time
		}

		competitors = append(competitors, competitor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate competitor rows: %w", err)
	}

	return competitors, nil
}

// Create inserts a new competitor
func (r *CompetitorRepository) Create(ctx context.Context, competitor *domain.Competitor) error {
	query := `
		INSERT INTO competitors (id, name, picture_url, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name        = EXCLUDED.name,
			picture_url = COALESCE(EXCLUDED.picture_url, competitors.picture_url)`

	var pictureURL interface{}
	if competitor.PictureURL != nil {
		pictureURL = *competitor.PictureURL
	}

	_, err := r.db.ExecContext(ctx, query, competitor.ID, competitor.Name, pictureURL)
	if err != nil {
		r.logger.Error("Failed to create competitor",
			"error", err,
			"competitor_id", competitor.ID,
		)
		return fmt.Errorf("failed to create competitor: %w", err)
	}

	r.logger.Info("Competitor created",
		"competitor_id", competitor.ID,
		"name", competitor.Name,
	)
	return nil
}

// Delete removes a competitor and its ads
func (r *CompetitorRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM competitors WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete competitor",
			"error", err,
			"competitor_id", id,
		)
		return fmt.Errorf("failed to delete competitor: %w", err)
	}

	r.logger.Info("Competitor deleted", "competitor_id", id)
	return nil
}

// MarkSynced records a completed batch sync for a competitor
func (r *CompetitorRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE competitors SET last_synced_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		r.logger.Error("Failed to mark competitor synced",
			"error", err,
			"competitor_id", id,
		)
		return fmt.Errorf("failed to mark competitor synced: %w", err)
	}
	return nil
}
