package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/imagegen-api/internal/api/shared"
	"github.com/phrazzld/imagegen-api/internal/mocks"
	"github.com/phrazzld/imagegen-api/internal/service"
	"github.com/phrazzld/imagegen-api/internal/task"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires the handlers onto a chi router the way cmd/server does.
type testEnv struct {
	gateway  *mocks.MockGateway
	sched    *task.ManualScheduler
	registry *SessionRegistry
	router   chi.Router
}

func newTestEnv(t *testing.T, gw *mocks.MockGateway, history *service.HistoryService) *testEnv {
	t.Helper()

	sched := task.NewManualScheduler(epoch)
	factory := func() *task.Controller {
		c := task.NewController(gw, gw,
			task.WithScheduler(sched),
			task.WithClock(sched),
			task.WithLogger(discardLogger()))
		if history != nil {
			c.OnStateChange(history)
		}
		return c
	}
	registry := NewSessionRegistry(factory, time.Minute, sched, discardLogger())
	t.Cleanup(registry.Close)

	relay := NewRelayHandler(gw, discardLogger())
	sessions := NewSessionHandler(registry)
	hist := NewHistoryHandler(history)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", relay.Generate)
		r.Get("/status", relay.Status)
		r.Post("/sessions", sessions.Create)
		r.Get("/sessions/{id}", sessions.Get)
		r.Delete("/sessions/{id}", sessions.Delete)
		r.Get("/history", hist.List)
		r.Get("/history/{task_id}", hist.Get)
	})

	return &testEnv{gateway: gw, sched: sched, registry: registry, router: r}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()

	var out shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
