package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dataset-publisher/internal/middleware"
	"dataset-publisher/internal/utils"
)

// Operations reported in metrics and outcomes
const (
	OperationCreateDataset = "create_dataset"
	OperationAppendRows    = "append_rows"
)

// Request is one call to the analytics API
type Request struct {
	Operation string
	Path      string
	Token     string
	Body      []byte
}

// Response holds the raw response of a successful call
type Response struct {
	StatusCode    int
	Body          string
	CorrelationID string
}

// AnalyticsClient implements the REST transport for the analytics API
type AnalyticsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *middleware.RequestLimiter
}

// NewAnalyticsClient creates a new analytics API client. A zero timeout never times out.
func NewAnalyticsClient(baseURL string, timeout time.Duration, limiter *middleware.RequestLimiter) (*AnalyticsClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	return &AnalyticsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// DatasetsPath is the create-dataset endpoint
func DatasetsPath(retentionPolicy string) string {
	if retentionPolicy == "" {
		return "/datasets"
	}
	return "/datasets?defaultRetentionPolicy=" + url.QueryEscape(retentionPolicy)
}

// RowsPath is the append-rows endpoint for one table of a dataset
func RowsPath(datasetID, tableName string) string {
	return fmt.Sprintf("/datasets/%s/tables/%s/rows", url.PathEscape(datasetID), url.PathEscape(tableName))
}

// Send issues the request and returns the whole response body as text.
// Non-2xx responses are returned as a RemoteRejection carrying the body.
func (c *AnalyticsClient) Send(ctx context.Context, r Request) (*Response, error) {
	correlationID := middleware.CorrelationIDFrom(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, utils.NewTransportError(err, "rate limiter wait aborted")
	}

	// Both operations are POSTs
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+r.Path, bytes.NewReader(r.Body))
	if err != nil {
		return nil, utils.NewTransportError(err, "failed to create request")
	}

	c.setAuthHeader(req, r.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.CorrelationIDHeader, correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		middleware.RecordAPIRequest(r.Operation, "error", time.Since(start), len(r.Body))
		return nil, utils.NewTransportError(err, fmt.Sprintf("POST %s", r.Path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	middleware.RecordAPIRequest(r.Operation, strconv.Itoa(resp.StatusCode), time.Since(start), len(r.Body))
	if err != nil {
		return nil, utils.NewTransportError(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.NewRemoteRejection(resp.StatusCode, string(body))
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		Body:          string(body),
		CorrelationID: correlationID,
	}, nil
}

func (c *AnalyticsClient) setAuthHeader(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
