package zimage_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
	"github.com/phrazzld/imagegen-api/internal/platform/zimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key-123456"

// fakeUpstream is a scripted stand-in for the remote task API.
type fakeUpstream struct {
	generateCalls atomic.Int32
	statusCalls   atomic.Int32

	mu           sync.Mutex
	lastAuth     string
	lastBody     map[string]string
	lastTaskID   string
	generateCode int
	generateBody string
	statusCode   int
	statusBody   string
}

func newFakeUpstream(t *testing.T) (*fakeUpstream, *httptest.Server) {
	t.Helper()

	f := &fakeUpstream{
		generateCode: http.StatusOK,
		generateBody: `{"code":200,"message":"ok","data":{"task_id":"task-1","status":"IN_PROGRESS"}}`,
		statusCode:   http.StatusOK,
		statusBody:   `{"code":200,"message":"ok","data":{"status":"IN_PROGRESS","task_id":"task-1"}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		f.generateCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.lastBody = body
		code, resp := f.generateCode, f.generateBody
		f.mu.Unlock()

		w.WriteHeader(code)
		_, _ = w.Write([]byte(resp))
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		f.statusCalls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)

		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.lastTaskID = r.URL.Query().Get("task_id")
		code, resp := f.statusCode, f.statusBody
		f.mu.Unlock()

		w.WriteHeader(code)
		_, _ = w.Write([]byte(resp))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUpstream) setGenerate(code int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCode, f.generateBody = code, body
}

func (f *fakeUpstream) last() (auth string, body map[string]string, taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth, f.lastBody, f.lastTaskID
}

func (f *fakeUpstream) setStatus(code int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCode, f.statusBody = code, body
}

func newTestClient(t *testing.T, srv *httptest.Server, key string) *zimage.Client {
	t.Helper()
	_, log := logger.NewTestLogger(t)
	return zimage.NewClient(config.UpstreamConfig{
		APIKey:         key,
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	}, log)
}

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{Prompt: "a red fox", AspectRatio: domain.AspectRatioWide}
}

func TestSubmitSendsOneRequest(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, testKey)

	handle, err := client.Submit(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, generation.TaskHandle("task-1"), handle)
	assert.Equal(t, int32(1), fake.generateCalls.Load())
	auth, body, _ := fake.last()
	assert.Equal(t, "Bearer "+testKey, auth)
	assert.Equal(t, map[string]string{"prompt": "a red fox", "aspect_ratio": "16:9"}, body)
}

func TestSubmitInvalidRequestMakesNoCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  domain.GenerationRequest
	}{
		{"blank prompt", domain.GenerationRequest{Prompt: "   ", AspectRatio: domain.AspectRatioSquare}},
		{"long prompt", domain.GenerationRequest{Prompt: strings.Repeat("a", 1001), AspectRatio: domain.AspectRatioSquare}},
		{"bad aspect ratio", domain.GenerationRequest{Prompt: "a fox", AspectRatio: "2:1"}},
		{"missing aspect ratio", domain.GenerationRequest{Prompt: "a fox"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake, srv := newFakeUpstream(t)
			client := newTestClient(t, srv, testKey)

			_, err := client.Submit(context.Background(), tc.req)

			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrValidation)
			assert.Equal(t, int32(0), fake.generateCalls.Load())
		})
	}
}

func TestMissingCredentialMakesNoCall(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, "")

	_, err := client.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, generation.ErrMissingCredential)
	assert.ErrorIs(t, err, generation.ErrConfiguration)

	_, err = client.Status(context.Background(), "task-1")
	assert.ErrorIs(t, err, generation.ErrMissingCredential)

	assert.Equal(t, int32(0), fake.generateCalls.Load())
	assert.Equal(t, int32(0), fake.statusCalls.Load())
}

func TestSubmitHTTPErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       int
		wantErr    error
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, generation.ErrInvalidCredential, 0},
		{"payment required", http.StatusPaymentRequired, generation.ErrQuota, 0},
		{"too many requests", http.StatusTooManyRequests, generation.ErrThrottled, 0},
		{"server error", http.StatusServiceUnavailable, generation.ErrUpstream, http.StatusServiceUnavailable},
		{"bad request", http.StatusBadRequest, generation.ErrUpstream, http.StatusBadRequest},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake, srv := newFakeUpstream(t)
			fake.setGenerate(tc.code, `{"code":0,"message":"api_key=sk-live-abcdef is bad"}`)
			client := newTestClient(t, srv, testKey)

			_, err := client.Submit(context.Background(), validRequest())

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.NotContains(t, err.Error(), "sk-live-abcdef")
			if tc.wantStatus != 0 {
				var upErr *generation.UpstreamError
				require.ErrorAs(t, err, &upErr)
				assert.Equal(t, tc.wantStatus, upErr.StatusCode)
				assert.Equal(t, generation.OpSubmit, upErr.Op)
			}
			assert.Equal(t, int32(1), fake.generateCalls.Load())
		})
	}
}

func TestSubmitBodyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"non-200 body code", `{"code":500,"message":"internal"}`, generation.ErrUpstream},
		{"missing task id", `{"code":200,"data":{"task_id":""}}`, generation.ErrUpstream},
		{"missing data", `{"code":200}`, generation.ErrUpstream},
		{"undecodable body", `<html>oops</html>`, generation.ErrConnectivity},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake, srv := newFakeUpstream(t)
			fake.setGenerate(http.StatusOK, tc.body)
			client := newTestClient(t, srv, testKey)

			_, err := client.Submit(context.Background(), validRequest())
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSubmitConnectivityFailure(t *testing.T) {
	t.Parallel()

	_, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, testKey)
	srv.Close()

	_, err := client.Submit(context.Background(), validRequest())

	assert.ErrorIs(t, err, generation.ErrConnectivity)
	assert.Equal(t, "Failed to connect. Please try again.", generation.UserMessage(err))
}

func TestStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus generation.Status
		wantURL    string
		wantReason string
	}{
		{
			name:       "in progress",
			body:       `{"code":200,"data":{"status":"IN_PROGRESS","task_id":"task-1"}}`,
			wantStatus: generation.StatusInProgress,
		},
		{
			name:       "native list",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":["http://x/a.png","http://x/b.png"],"request":{"prompt":"a red fox","aspect_ratio":"16:9"}}}`,
			wantStatus: generation.StatusSucceeded,
			wantURL:    "http://x/a.png",
		},
		{
			name:       "text encoded list",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":"[\"http://x/a.png\"]"}}`,
			wantStatus: generation.StatusSucceeded,
			wantURL:    "http://x/a.png",
		},
		{
			name:       "empty list",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":[]}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "encoded empty list",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":"[]"}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "absent response",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1"}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "numeric response",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":5}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "object response",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":{}}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "boolean response",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":true}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonNoResult,
		},
		{
			name:       "undecodable text",
			body:       `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1","response":"not-json"}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonInvalidResult,
		},
		{
			name:       "failed with message",
			body:       `{"code":200,"data":{"status":"FAILED","task_id":"task-1","error_message":"NSFW content"}}`,
			wantStatus: generation.StatusFailed,
			wantReason: "NSFW content",
		},
		{
			name:       "failed without message",
			body:       `{"code":200,"data":{"status":"FAILED","task_id":"task-1","error_message":null}}`,
			wantStatus: generation.StatusFailed,
			wantReason: generation.ReasonGenerationFailed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake, srv := newFakeUpstream(t)
			fake.setStatus(http.StatusOK, tc.body)
			client := newTestClient(t, srv, testKey)

			state, err := client.Status(context.Background(), "task-1")

			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, state.Status)
			assert.Equal(t, generation.TaskHandle("task-1"), state.Handle)
			assert.Equal(t, tc.wantReason, state.Reason)
			if tc.wantURL != "" {
				require.NotNil(t, state.Result)
				assert.Equal(t, tc.wantURL, state.Result.ImageURL)
			} else {
				assert.Nil(t, state.Result)
			}
		})
	}
}

func TestStatusSuccessEchoesRequest(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	fake.setStatus(http.StatusOK, `{"code":200,"data":{"status":"SUCCESS","task_id":"task-1",`+
		`"response":["http://x/a.png","http://x/b.png"],"request":{"prompt":"a red fox","aspect_ratio":"16:9"},`+
		`"consumed_credits":1.5,"created_at":"2025-01-01T00:00:00Z"}}`)
	client := newTestClient(t, srv, testKey)

	state, err := client.Status(context.Background(), "task-1")

	require.NoError(t, err)
	require.NotNil(t, state.Result)
	assert.Equal(t, generation.Result{
		ImageURL:    "http://x/a.png",
		Prompt:      "a red fox",
		AspectRatio: domain.AspectRatioWide,
		Total:       2,
	}, *state.Result)
}

func TestStatusInProgressIsIdempotent(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, testKey)

	first, err := client.Status(context.Background(), "task-1")
	require.NoError(t, err)
	second, err := client.Status(context.Background(), "task-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, generation.StatusInProgress, first.Status)
	assert.Equal(t, int32(2), fake.statusCalls.Load())
}

func TestStatusUnknownStatus(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	fake.setStatus(http.StatusOK, `{"code":200,"data":{"status":"QUEUED","task_id":"task-1"}}`)
	client := newTestClient(t, srv, testKey)

	_, err := client.Status(context.Background(), "task-1")

	var upErr *generation.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, upErr.Message, "unknown status")
	assert.Equal(t, "Failed to check status. Please try again.", generation.UserMessage(err))
}

func TestStatusHTTPErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, generation.ErrInvalidCredential},
		{"payment required", http.StatusPaymentRequired, `{}`, generation.ErrQuota},
		{"too many requests", http.StatusTooManyRequests, `{}`, generation.ErrThrottled},
		{"not found", http.StatusNotFound, `{}`, generation.ErrUpstream},
		{"body code", http.StatusOK, `{"code":404,"message":"task not found"}`, generation.ErrUpstream},
		{"missing data", http.StatusOK, `{"code":200}`, generation.ErrUpstream},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake, srv := newFakeUpstream(t)
			fake.setStatus(tc.code, tc.body)
			client := newTestClient(t, srv, testKey)

			_, err := client.Status(context.Background(), "task-1")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestStatusEscapesHandle(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, testKey)

	_, err := client.Status(context.Background(), "a&b=c d")

	require.NoError(t, err)
	_, _, taskID := fake.last()
	assert.Equal(t, "a&b=c d", taskID)
}

func TestStatusEmptyHandle(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstream(t)
	client := newTestClient(t, srv, testKey)

	_, err := client.Status(context.Background(), "  ")

	assert.ErrorIs(t, err, generation.ErrValidation)
	assert.Equal(t, int32(0), fake.statusCalls.Load())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, zimage.IsRetryable(generation.ErrThrottled))
	assert.True(t, zimage.IsRetryable(generation.ErrConnectivity))
	assert.True(t, zimage.IsRetryable(&generation.UpstreamError{StatusCode: 502}))
	assert.False(t, zimage.IsRetryable(&generation.UpstreamError{StatusCode: 400}))
	assert.False(t, zimage.IsRetryable(generation.ErrInvalidCredential))
}
