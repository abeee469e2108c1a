package pullrequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sprint-metrics/config"
	"sprint-metrics/telemetry"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// maximum number of error body bytes kept in an HTTPError
const maxErrorBody = 512

// Client queries the read-only pull request API
type Client struct {
	baseURL   string
	http      *http.Client
	encoder   *schema.Encoder
	logger    *zap.Logger
	telemetry *telemetry.Collector
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTelemetry records query outcomes into the given collector
func WithTelemetry(t *telemetry.Collector) Option {
	return func(c *Client) { c.telemetry = t }
}

// NewClient creates a new pull request API client
func NewClient(cfg config.Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
		encoder: schema.NewEncoder(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryParams struct {
	StartDate  string   `schema:"startdate"`
	EndDate    string   `schema:"enddate"`
	Developers []string `schema:"developers,omitempty"`
}

// FetchPullRequests issues one range query and returns the transformed
// records. Request-level failures come back as *HTTPError, *FormatError or
// *NetworkError; invalid records are dropped and listed in Result.Warnings.
func (c *Client) FetchPullRequests(ctx context.Context, q Query) (Result, error) {
	values := url.Values{}
	params := queryParams{
		StartDate:  q.StartDate.Format(dateLayout),
		EndDate:    q.EndDate.Format(dateLayout),
		Developers: q.Developers,
	}
	if err := c.encoder.Encode(params, values); err != nil {
		return Result{}, fmt.Errorf("error encoding query: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/pull_requests?%s", c.baseURL, values.Encode())

	start := time.Now()
	result, err := c.fetch(ctx, endpoint)
	c.telemetry.ObserveQuery(outcome(err), time.Since(start))
	if err != nil {
		c.logger.Error("pull request query failed", zap.String("url", endpoint), zap.Error(err))
		return Result{}, err
	}
	c.telemetry.AddRecords(len(result.PullRequests), len(result.Warnings))
	return result, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (Result, error) {
	body, err := c.makeRequest(ctx, endpoint)
	if err != nil {
		return Result{}, err
	}
	return c.decode(body)
}

// makeRequest performs the GET and checks status and content type
func (c *Client) makeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sprint-metrics")
	req.Header.Set("X-Request-ID", requestID)
	c.logger.Debug("querying pull requests", zap.String("url", endpoint), zap.String("request_id", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		return nil, &FormatError{ContentType: contentType, Err: errors.New("content type is not JSON")}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return body, nil
}

// decode splits the array into records so that one malformed record cannot
// fail the whole batch.
func (c *Client) decode(body []byte) (Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Result{}, &FormatError{ContentType: "application/json", Err: errors.New("body is not a JSON array")}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return Result{}, &FormatError{ContentType: "application/json", Err: err}
	}

	result := Result{PullRequests: make([]PullRequest, 0, len(raws))}
	for i, raw := range raws {
		var rec APIRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			result.Warnings = append(result.Warnings, c.drop(i, 0, fmt.Errorf("%w: %v", ErrInvalidRecord, err)))
			continue
		}
		pr, err := Transform(rec)
		if err != nil {
			result.Warnings = append(result.Warnings, c.drop(i, rec.Number, err))
			continue
		}
		if !pr.InOrder() {
			c.logger.Debug("pull request timestamps out of order", zap.Int("number", pr.ID), zap.String("repository", pr.Repository))
		}
		result.PullRequests = append(result.PullRequests, pr)
	}
	return result, nil
}

func (c *Client) drop(index, number int, err error) *InvalidRecordError {
	w := &InvalidRecordError{Index: index, Number: number, Err: err}
	c.logger.Warn("dropping invalid pull request record",
		zap.Int("index", index),
		zap.Int("number", number),
		zap.Error(err),
	)
	return w
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func outcome(err error) string {
	var (
		httpErr    *HTTPError
		formatErr  *FormatError
		networkErr *NetworkError
	)
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.As(err, &httpErr):
		return telemetry.OutcomeHTTPError
	case errors.As(err, &formatErr):
		return telemetry.OutcomeFormatError
	case errors.As(err, &networkErr):
		return telemetry.OutcomeNetworkError
	default:
		return telemetry.OutcomeOther
	}
}
