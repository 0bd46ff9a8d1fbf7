package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/form"
	"github.com/vovakirdan/formrelay/internal/metrics"
)

const (
	testIndexHTML   = "<html><body>index</body></html>"
	testMessageHTML = "<html><body><form method=\"post\" action=\"/send_message\"></form></body></html>"
	testErrorHTML   = "<html><body>not found</body></html>"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeRelay records submissions instead of sending datagrams.
type fakeRelay struct {
	mu   sync.Mutex
	err  error
	subs []form.Submission
}

func (r *fakeRelay) Send(_ context.Context, sub form.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	return r.err
}

func (r *fakeRelay) Sent() []form.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]form.Submission(nil), r.subs...)
}

var errRelayDown = errors.New("relay down")

// createStaticDir writes the three fixed pages plus a few assets into a temp dir.
func createStaticDir(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "static")
	files := map[string]string{
		indexPage:         testIndexHTML,
		messagePage:       testMessageHTML,
		errorPage:         testErrorHTML,
		"style.css":       "body { color: black; }",
		"logo.svg":        "<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>",
		"notes.zzunknown": "plain words only",
		"css/extra.css":   ".x {}",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func testHTTPConfig(staticDir string) config.HTTPConfig {
	cfg := config.Default().HTTP
	cfg.Addr = "127.0.0.1:0"
	cfg.StaticDir = staticDir
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func newTestRouter(t *testing.T, staticDir string, relay Relay) (*gin.Engine, *metrics.Metrics) {
	t.Helper()

	logger := zerolog.Nop()
	m := metrics.New()
	return NewRouter(testHTTPConfig(staticDir), relay, m, &logger), m
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
