// Package chatapi is the HTTP client for the repérage message store.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/reperage/internal/logging"
	"github.com/tOgg1/reperage/internal/models"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to the message store API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a Client rooted at baseURL (e.g. http://host/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", logging.RedactURL(baseURL))
	}

	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logging.Component("chatapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug().Str("base_url", logging.RedactURL(parsed.String())).Msg("api client ready")
	return c, nil
}

// ListMessages returns the whole conversation of a report in server order.
func (c *Client) ListMessages(ctx context.Context, reportID int64) ([]models.Message, error) {
	if reportID <= 0 {
		return nil, fmt.Errorf("%w: report id is required", ErrValidation)
	}
	var out []models.Message
	if err := c.do(ctx, http.MethodGet, reportPath(reportID, "messages"), nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Message{}
	}
	return out, nil
}

// SendMessage posts a message. Blank content is rejected before any request is made.
func (c *Client) SendMessage(ctx context.Context, reportID int64, msg models.NewMessage) (models.Message, error) {
	if reportID <= 0 {
		return models.Message{}, fmt.Errorf("%w: report id is required", ErrValidation)
	}
	normalized, err := msg.Normalize()
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var out models.Message
	if err := c.do(ctx, http.MethodPost, reportPath(reportID, "messages"), nil, normalized, &out); err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// MarkRead flags a message as read. The server treats repeats as no-ops.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	if messageID <= 0 {
		return fmt.Errorf("%w: message id is required", ErrValidation)
	}
	path := "/messages/" + strconv.FormatInt(messageID, 10) + "/read"
	return c.do(ctx, http.MethodPut, path, nil, nil, nil)
}

// UnreadCount returns how many counterpart messages perspective has not read.
func (c *Client) UnreadCount(ctx context.Context, reportID int64, perspective models.Perspective) (int, error) {
	if reportID <= 0 {
		return 0, fmt.Errorf("%w: report id is required", ErrValidation)
	}
	if !perspective.Valid() {
		return 0, fmt.Errorf("%w: invalid perspective %q", ErrValidation, perspective)
	}
	query := url.Values{"for": []string{string(perspective)}}
	var out models.UnreadCount
	if err := c.do(ctx, http.MethodGet, reportPath(reportID, "messages/unread-count"), query, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// CreateReport creates a repérage. Used by the CLI to bootstrap a conversation.
func (c *Client) CreateReport(ctx context.Context, title, fixerName string) (models.Report, error) {
	body := map[string]string{"titre": title, "fixer_nom": fixerName}
	var out models.Report
	if err := c.do(ctx, http.MethodPost, "/reperages", nil, body, &out); err != nil {
		return models.Report{}, err
	}
	return out, nil
}

// GetReport fetches a repérage by id.
func (c *Client) GetReport(ctx context.Context, reportID int64) (models.Report, error) {
	var out models.Report
	path := "/reperages/" + strconv.FormatInt(reportID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return models.Report{}, err
	}
	return out, nil
}

func reportPath(reportID int64, suffix string) string {
	return "/reperages/" + strconv.FormatInt(reportID, 10) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Trace().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("request_id", requestID).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrNetwork, method, path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}
	return &StatusError{
		Method:  method,
		Path:    path,
		Status:  resp.StatusCode,
		Message: message,
	}
}
