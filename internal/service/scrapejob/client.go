// Package scrapejob integrates the hosted scraping runner: submitting
// actor runs, polling them to completion, fetching dataset results, and
// turning structured records into resolved media.
package scrapejob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"adscope/internal/domain"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	defaultActorID = "shu8hvrXbJbY3Eb9W"

	clientTimeout = 30 * time.Second
)

// Client talks to the hosted runner's REST API. The token is passed as a
// query parameter on every call and never logged.
type Client struct {
	baseURL    string
	token      string
	actorID    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(token, actorID string, logger *slog.Logger) *Client {
	if actorID == "" {
		actorID = defaultActorID
	}
	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		actorID:    actorID,
		httpClient: &http.Client{Timeout: clientTimeout},
		logger:     logger,
	}
}

// Configured reports whether a credential is present at all.
func (c *Client) Configured() bool { return c.token != "" }

// Validate probes the credential with a cheap identity call and returns
// the account label it belongs to. Returns ErrCredentialInvalid on a
// rejected token so callers can disable the strategy for the life of
// the process instead of failing every job.
func (c *Client) Validate(ctx context.Context) (string, error) {
	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/users/me", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("identity probe returned no account id")
	}
	if out.Data.Username != "" {
		return out.Data.Username, nil
	}
	return out.Data.ID, nil
}

// runInput is the actor's expected input document. Batch syncs pass one
// ads-library page URL per competitor; single re-resolution passes the
// ad's snapshot URL directly with maxItems 1.
type runInput struct {
	StartURLs        []runInputURL `json:"startUrls"`
	MaxItems         int           `json:"maxItems,omitempty"`
	IncludeAdDetails bool          `json:"includeAdDetails"`
}

type runInputURL struct {
	URL string `json:"url"`
}

// LibraryPageURL builds the ads-library listing URL for a competitor
// page, the start URL the actor crawls during a batch sync.
func LibraryPageURL(pageID string) string {
	return "https://www.facebook.com/ads/library/?active_status=all&ad_type=all&country=ALL&view_all_page_id=" + url.QueryEscape(pageID)
}

// Submit starts an actor run over the given start URLs and returns the
// run handle in READY or RUNNING state.
func (c *Client) Submit(ctx context.Context, startURLs []string, maxItems int) (domain.BatchJob, error) {
	input := runInput{MaxItems: maxItems, IncludeAdDetails: true}
	for _, u := range startURLs {
		input.StartURLs = append(input.StartURLs, runInputURL{URL: u})
	}

	body, err := json.Marshal(input)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("encoding run input: %w", err)
	}

	var out struct {
		Data struct {
			ID               string `json:"id"`
			Status           string `json:"status"`
			DefaultDatasetID string `json:"defaultDatasetId"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/acts/%s/runs", url.PathEscape(c.actorID))
	if err := c.post(ctx, path, body, &out); err != nil {
		return domain.BatchJob{}, fmt.Errorf("submitting run: %w", err)
	}

	c.logger.Info("scrape run submitted", "run_id", out.Data.ID, "start_urls", len(startURLs), "max_items", maxItems)
	return domain.BatchJob{
		JobID:         out.Data.ID,
		Status:        domain.BatchJobStatus(out.Data.Status),
		ResultLocator: out.Data.DefaultDatasetID,
	}, nil
}

// Status fetches the current state of a run.
func (c *Client) Status(ctx context.Context, runID string) (domain.BatchJob, error) {
	var out struct {
		Data struct {
			ID               string `json:"id"`
			Status           string `json:"status"`
			DefaultDatasetID string `json:"defaultDatasetId"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/actor-runs/%s", url.PathEscape(runID))
	if err := c.get(ctx, path, &out); err != nil {
		return domain.BatchJob{}, fmt.Errorf("fetching run status: %w", err)
	}
	return domain.BatchJob{
		JobID:         out.Data.ID,
		Status:        domain.BatchJobStatus(out.Data.Status),
		ResultLocator: out.Data.DefaultDatasetID,
	}, nil
}

// FetchResults downloads the run's dataset in one request.
func (c *Client) FetchResults(ctx context.Context, datasetID string) ([]ScrapedRecord, error) {
	path := fmt.Sprintf("/datasets/%s/items", url.PathEscape(datasetID))
	req, err := c.newRequest(ctx, http.MethodGet, path, url.Values{"clean": {"true"}}, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var records []ScrapedRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding dataset items: %w", err)
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("building runner request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("runner request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding runner response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrCredentialInvalid
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("runner returned status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
