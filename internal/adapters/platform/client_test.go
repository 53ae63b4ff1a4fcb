package platform_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"replypilot/internal/adapters/platform"
	"replypilot/internal/domain"
)

func TestClient_PostReply_Success(t *testing.T) {
	var gotPath, gotAuth, gotComment string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Comment string `json:"comment"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotComment = body.Comment
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cl, err := platform.New(ts.URL, 100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := cl.PostReply(context.Background(), "accounts/1/locations/2/reviews/abc", "Thank you!", "tok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotPath != "/accounts/1/locations/2/reviews/abc/reply" {
		t.Fatalf("path: %s", gotPath)
	}
	if gotAuth != "Bearer tok" || gotComment != "Thank you!" {
		t.Fatalf("auth=%q comment=%q", gotAuth, gotComment)
	}
}

func TestClient_PostReply_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusBadRequest, domain.ErrPlatformRejected},
		{http.StatusUnprocessableEntity, domain.ErrPlatformRejected},
		{http.StatusTooManyRequests, domain.ErrPublicationFailed},
		{http.StatusInternalServerError, domain.ErrPublicationFailed},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		cl, _ := platform.New(ts.URL, 100, time.Second)
		err := cl.PostReply(context.Background(), "reviews/1", "hi", "tok")
		ts.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestClient_PostReply_NoRetryOn5xx(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	cl, _ := platform.New(ts.URL, 100, time.Second)
	if err := cl.PostReply(context.Background(), "reviews/1", "hi", "tok"); err == nil {
		t.Fatalf("expected error for 502")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := platform.New("", 1, 0); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
