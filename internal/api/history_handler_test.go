package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/mocks"
	"github.com/phrazzld/imagegen-api/internal/service"
	"github.com/phrazzld/imagegen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T, s store.GenerationStore) *service.HistoryService {
	t.Helper()
	h, err := service.NewHistoryService(s, discardLogger())
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mocks.MockGateway{}, nil)

	for _, target := range []string{"/api/history", "/api/history/task-1"} {
		w := env.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		assert.Equal(t, "Generation history is not enabled", decodeError(t, w).Error)
	}
}

func TestHistoryRecordsSessionOutcomes(t *testing.T) {
	t.Parallel()

	st := &mocks.MockGenerationStore{}
	hist := newHistory(t, st)
	env := newTestEnv(t, mocks.NewMockGatewayResolving(2, "http://x/fox.png"), hist)

	w := env.do(t, http.MethodPost, "/api/sessions", `{"prompt":"a red fox","aspect_ratio":"4:3"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	env.sched.Advance(10 * time.Second)
	hist.Close()

	w = env.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	gens, ok := body["generations"].([]interface{})
	require.True(t, ok)
	require.Len(t, gens, 1)

	entry := gens[0].(map[string]interface{})
	assert.Equal(t, "task-1", entry["task_id"])
	assert.Equal(t, "succeeded", entry["outcome"])
	assert.Equal(t, "http://x/fox.png", entry["imageUrl"])
	assert.Equal(t, "4:3", entry["aspect_ratio"])
	assert.EqualValues(t, 2, entry["attempts"])
	assert.EqualValues(t, 4, entry["elapsed_seconds"])

	w = env.do(t, http.MethodGet, "/api/history/task-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a red fox", decodeBody(t, w)["prompt"])

	w = env.do(t, http.MethodGet, "/api/history/task-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Generation not found", decodeError(t, w).Error)
}

func TestHistoryList(t *testing.T) {
	t.Parallel()

	st := &mocks.MockGenerationStore{}
	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, st.Create(context.Background(), &store.GenerationRecord{
			TaskID:      id,
			Prompt:      "fox",
			AspectRatio: domain.AspectRatioSquare,
			Outcome:     store.OutcomeFailed,
			Message:     "Image generation failed. Please try again.",
			CreatedAt:   epoch.Add(time.Duration(i) * time.Minute),
		}))
	}
	env := newTestEnv(t, &mocks.MockGateway{}, newHistory(t, st))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{"default limit newest first", "/api/history", http.StatusOK, []string{"t3", "t2", "t1"}},
		{"explicit limit", "/api/history?limit=2", http.StatusOK, []string{"t3", "t2"}},
		{"zero limit rejected", "/api/history?limit=0", http.StatusBadRequest, nil},
		{"non-numeric limit rejected", "/api/history?limit=ten", http.StatusBadRequest, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tc.target, "")
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantIDs == nil {
				assert.Equal(t, "limit must be a positive integer", decodeError(t, w).Error)
				return
			}

			var ids []string
			for _, g := range decodeBody(t, w)["generations"].([]interface{}) {
				ids = append(ids, g.(map[string]interface{})["task_id"].(string))
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		failing := &mocks.MockGenerationStore{ListErr: errors.New("connection refused")}
		env := newTestEnv(t, &mocks.MockGateway{}, newHistory(t, failing))

		w := env.do(t, http.MethodGet, "/api/history", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to load history", decodeError(t, w).Error)
	})
}
