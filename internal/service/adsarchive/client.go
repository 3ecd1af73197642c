// Package adsarchive fetches a competitor's ad catalog from the public
// ad archive Graph API.
package adsarchive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adscope/internal/domain"
)

const (
	graphBaseURL = "https://graph.facebook.com/v19.0"

	// lookbackMonths bounds each sync to recent campaigns so page sizes
	// stay manageable for prolific advertisers.
	lookbackMonths = 3

	// maxAdsPerSync is a hard ceiling on ads pulled in one sync.
	maxAdsPerSync = 1500

	pageSize = 100
)

// Client reads the ads archive. A token is required; tokens pasted from
// dashboards tend to pick up stray whitespace, so the constructor
// sanitizes it.
type Client struct {
	baseURL    string
	token      string
	country    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(token, country string, logger *slog.Logger) *Client {
	if country == "" {
		country = "US"
	}
	return &Client{
		baseURL:    graphBaseURL,
		token:      sanitizeToken(token),
		country:    country,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func sanitizeToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.ReplaceAll(token, "\n", "")
	token = strings.ReplaceAll(token, "\r", "")
	return token
}

// Validate issues a minimal archive query to confirm the token works.
func (c *Client) Validate(ctx context.Context) error {
	q := c.baseQuery("")
	q.Set("search_terms", "test")
	q.Set("limit", "1")

	var page archivePage
	if err := c.fetchPage(ctx, c.baseURL+"/ads_archive?"+q.Encode(), &page); err != nil {
		return fmt.Errorf("archive token validation: %w", err)
	}
	return nil
}

// FetchPageAds pulls the recent ads for one advertiser page, following
// pagination until the archive is exhausted or the sync ceiling is hit.
func (c *Client) FetchPageAds(ctx context.Context, pageID string) ([]*domain.AdRecord, error) {
	q := c.baseQuery(pageID)
	next := c.baseURL + "/ads_archive?" + q.Encode()

	var ads []*domain.AdRecord
	for next != "" && len(ads) < maxAdsPerSync {
		var page archivePage
		if err := c.fetchPage(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetching archive page for %s: %w", pageID, err)
		}

		for _, row := range page.Data {
			ad, err := row.toAdRecord()
			if err != nil {
				c.logger.Warn("skipping malformed archive row", "page_id", pageID, "error", err)
				continue
			}
			ads = append(ads, ad)
			if len(ads) >= maxAdsPerSync {
				break
			}
		}
		next = page.Paging.Next
	}

	c.logger.Info("archive fetch complete", "page_id", pageID, "ads", len(ads))
	return ads, nil
}

func (c *Client) baseQuery(pageID string) url.Values {
	since := time.Now().AddDate(0, -lookbackMonths, 0).Format("2006-01-02")

	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("ad_reached_countries", fmt.Sprintf("['%s']", c.country))
	q.Set("ad_active_status", "ALL")
	q.Set("ad_delivery_date_min", since)
	q.Set("fields", "id,page_id,page_name,ad_creative_bodies,ad_snapshot_url,ad_delivery_start_time,ad_delivery_stop_time,eu_total_reach")
	q.Set("limit", fmt.Sprint(pageSize))
	if pageID != "" {
		q.Set("search_page_ids", pageID)
	}
	return q
}

func (c *Client) fetchPage(ctx context.Context, pageURL string, out *archivePage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("building archive request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code == 190 {
			return domain.ErrCredentialInvalid
		}
		return fmt.Errorf("archive returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding archive page: %w", err)
	}
	return nil
}

type archivePage struct {
	Data   []archiveRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type archiveRow struct {
	ID                  string   `json:"id"`
	PageID              string   `json:"page_id"`
	PageName            string   `json:"page_name"`
	AdCreativeBodies    []string `json:"ad_creative_bodies"`
	AdSnapshotURL       string   `json:"ad_snapshot_url"`
	AdDeliveryStartTime string   `json:"ad_delivery_start_time"`
	AdDeliveryStopTime  string   `json:"ad_delivery_stop_time"`
	EUTotalReach        int64    `json:"eu_total_reach"`
}

func (r archiveRow) toAdRecord() (*domain.AdRecord, error) {
	if r.ID == "" || r.AdSnapshotURL == "" {
		return nil, fmt.Errorf("row missing id or snapshot url")
	}

	start, err := parseArchiveDate(r.AdDeliveryStartTime)
	if err != nil {
		return nil, fmt.Errorf("parsing delivery start: %w", err)
	}

	ad := &domain.AdRecord{
		ID:           r.ID,
		PageID:       r.PageID,
		PageName:     r.PageName,
		SnapshotURL:  r.AdSnapshotURL,
		CreationTime: start,
		Reach:        r.EUTotalReach,
	}
	if len(r.AdCreativeBodies) > 0 {
		body := r.AdCreativeBodies[0]
		ad.Body = &body
	}
	if r.AdDeliveryStopTime != "" {
		stop, err := parseArchiveDate(r.AdDeliveryStopTime)
		if err == nil {
			ad.StopTime = &stop
		}
	}
	return ad, nil
}

// parseArchiveDate accepts the two timestamp shapes the archive emits.
func parseArchiveDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
