package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	httpserver "replypilot/internal/adapters/http_server"
)

func TestLogger_RecordsRouteResourceAndActor(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(chimw.RequestID)
	m.Use(httpserver.Logger(zerolog.New(&buf)))
	m.Post("/v1/reviews/{id}/post", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/reviews/r-42/post", nil)
	req.Header.Set(httpserver.ActorHeader, "u7")
	m.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var inner, access map[string]any
	if err := json.Unmarshal(lines[0], &inner); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(lines[1], &access); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inner["request_id"] == nil || inner["request_id"] != access["request_id"] {
		t.Fatalf("request id not shared: %v / %v", inner, access)
	}
	want := map[string]any{
		"level":       "warn",
		"route":       "/v1/reviews/{id}/post",
		"resource_id": "r-42",
		"actor":       "u7",
		"status":      float64(http.StatusConflict),
	}
	for k, v := range want {
		if access[k] != v {
			t.Fatalf("%s: got %v want %v", k, access[k], v)
		}
	}
}

func TestLogger_DefaultsStatusOK(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(httpserver.Logger(zerolog.New(&buf)))
	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })

	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var access map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &access); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if access["level"] != "info" || access["status"] != float64(http.StatusOK) || access["bytes"] != float64(2) {
		t.Fatalf("unexpected access line: %v", access)
	}
	if _, ok := access["resource_id"]; ok {
		t.Fatalf("resource_id logged for a route without one")
	}
}
