package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/metrics"
)

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	resp := do(router, http.MethodGet, "/healthz", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", resp.Code, resp.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	resp := do(router, http.MethodGet, "/", "")
	if id := resp.Header().Get(HeaderRequestID); len(id) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if id := rec.Header().Get(HeaderRequestID); id != "abc-123" {
		t.Fatalf("expected client request id to be echoed, got %q", id)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	do(router, http.MethodGet, "/index.html", "")
	do(router, http.MethodGet, "/does-not-exist", "")

	resp := do(router, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`formrelay_http_requests_total{method="GET",route="/index.html",status="200"} 1`,
		`formrelay_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewServerUsesConfig(t *testing.T) {
	cfg := testHTTPConfig(createStaticDir(t))
	logger := zerolog.Nop()
	srv := NewServer(cfg, &fakeRelay{}, metrics.New(), &logger)
	if srv.Addr != cfg.Addr || srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("server not configured from config: %+v", srv)
	}
}
