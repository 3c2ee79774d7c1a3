package zimage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/redact"
)

const (
	generatePath = "/api/generate"
	statusPath   = "/api/status"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Client talks to the zimageturbo task API. It implements
// generation.Submitter and generation.StatusChecker.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Compile-time check that Client implements generation.Gateway.
var _ generation.Gateway = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a Client from upstream configuration. An empty API key
// is accepted here; calls fail with generation.ErrMissingCredential instead.
func NewClient(cfg config.UpstreamConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	c := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.With("component", "zimage_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates req and starts a remote generation task. Exactly one HTTP
// request is made for a valid req; none for an invalid one.
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (generation.TaskHandle, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if c.apiKey == "" {
		return "", generation.ErrMissingCredential
	}

	body, err := json.Marshal(submitRequest{
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", generation.ErrConnectivity, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", generation.ErrConnectivity, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp submitResponse
	if err := c.do(ctx, httpReq, generation.OpSubmit, &resp); err != nil {
		return "", err
	}

	if resp.Code != codeOK || resp.Data == nil || resp.Data.TaskID == "" {
		c.logger.WarnContext(ctx, "submit rejected by upstream",
			slog.Int("code", resp.Code),
			slog.String("message", redact.String(resp.Message)))
		return "", &generation.UpstreamError{
			Op:         generation.OpSubmit,
			StatusCode: http.StatusOK,
			Code:       resp.Code,
			Message:    "missing task id",
		}
	}

	handle := generation.TaskHandle(resp.Data.TaskID)
	c.logger.DebugContext(ctx, "task submitted",
		slog.String("task_id", handle.String()),
		slog.String("aspect_ratio", string(req.AspectRatio)))
	return handle, nil
}

// Status performs one status query for handle and classifies the answer.
// Upstream task failures, including unusable success payloads, come back as
// a Failed state with a nil error.
func (c *Client) Status(ctx context.Context, handle generation.TaskHandle) (generation.TaskState, error) {
	if strings.TrimSpace(handle.String()) == "" {
		return generation.TaskState{}, fmt.Errorf("%w: empty task handle", generation.ErrValidation)
	}
	if c.apiKey == "" {
		return generation.TaskState{}, generation.ErrMissingCredential
	}

	endpoint := c.baseURL + statusPath + "?task_id=" + url.QueryEscape(handle.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return generation.TaskState{}, fmt.Errorf("%w: build request: %v", generation.ErrConnectivity, err)
	}

	var resp statusResponse
	if err := c.do(ctx, httpReq, generation.OpStatus, &resp); err != nil {
		return generation.TaskState{}, err
	}

	if resp.Code != codeOK || resp.Data == nil {
		return generation.TaskState{}, &generation.UpstreamError{
			Op:         generation.OpStatus,
			StatusCode: http.StatusOK,
			Code:       resp.Code,
			Message:    "missing status data",
		}
	}

	state, err := classify(handle, resp.Data)
	if err != nil {
		return generation.TaskState{}, err
	}

	if state.Status == generation.StatusFailed {
		c.logger.InfoContext(ctx, "task reported failure",
			slog.String("task_id", handle.String()),
			slog.String("reason", redact.String(state.Reason)),
			slog.String("payload", resp.Data.Response.Kind.String()))
	}
	return state, nil
}

// classify maps one decoded status body onto a TaskState. It has no side
// effects, so the same body always yields the same state.
func classify(handle generation.TaskHandle, data *statusData) (generation.TaskState, error) {
	if data.TaskID != "" {
		handle = generation.TaskHandle(data.TaskID)
	}

	switch data.Status {
	case statusInProgress:
		return generation.InProgress(handle), nil

	case statusFailed:
		reason := ""
		if data.ErrorMessage != nil {
			reason = strings.TrimSpace(*data.ErrorMessage)
		}
		return generation.Failed(handle, reason), nil

	case statusSuccess:
		payload := data.Response
		switch payload.Kind {
		case PayloadMalformed:
			return generation.Failed(handle, generation.ReasonInvalidResult), nil
		case PayloadAbsent:
			return generation.Failed(handle, generation.ReasonNoResult), nil
		}
		if len(payload.URLs) == 0 {
			return generation.Failed(handle, generation.ReasonNoResult), nil
		}

		result := generation.Result{
			ImageURL: payload.URLs[0],
			Total:    len(payload.URLs),
		}
		if data.Request != nil {
			result.Prompt = data.Request.Prompt
			result.AspectRatio = domain.AspectRatio(data.Request.AspectRatio)
		}
		return generation.Succeeded(handle, result), nil

	default:
		return generation.TaskState{}, &generation.UpstreamError{
			Op:         generation.OpStatus,
			StatusCode: http.StatusOK,
			Code:       codeOK,
			Message:    fmt.Sprintf("unknown status %q", data.Status),
		}
	}
}

// do sends req with the bearer credential, maps HTTP-level failures onto
// the generation error taxonomy, and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, req *http.Request, op string, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.WarnContext(ctx, "upstream request failed",
			slog.String("op", op),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("%w: %s: %s", generation.ErrConnectivity, op, redact.Error(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := statusError(op, resp.StatusCode); err != nil {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.logger.WarnContext(ctx, "upstream returned error status",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode))
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: decode response: %v", generation.ErrConnectivity, op, err)
	}
	return nil
}

// statusError maps a non-2xx HTTP status onto the error taxonomy. It returns
// nil for 2xx.
func statusError(op string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return generation.ErrInvalidCredential
	case code == http.StatusPaymentRequired:
		return generation.ErrQuota
	case code == http.StatusTooManyRequests:
		return generation.ErrThrottled
	default:
		return &generation.UpstreamError{
			Op:         op,
			StatusCode: code,
			Message:    http.StatusText(code),
		}
	}
}

// IsRetryable reports whether err is a transient upstream condition. The
// controller never retries; the CLI uses this only to phrase its hint.
func IsRetryable(err error) bool {
	if errors.Is(err, generation.ErrThrottled) || errors.Is(err, generation.ErrConnectivity) {
		return true
	}
	var upErr *generation.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= 500
	}
	return false
}
