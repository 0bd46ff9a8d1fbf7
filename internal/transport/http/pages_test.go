package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIndexRoutesServeSameContent(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	root := do(router, http.MethodGet, "/", "")
	if root.Code != http.StatusOK {
		t.Fatalf("/: expected status 200, got %d", root.Code)
	}
	if root.Body.String() != testIndexHTML {
		t.Errorf("unexpected index body: %q", root.Body.String())
	}

	for _, target := range []string{"/index.html", "/index.html?x=1", "/index.html?utm=1&x=y", "/?x=1"} {
		resp := do(router, http.MethodGet, target, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", target, resp.Code)
		}
		if resp.Body.String() != root.Body.String() {
			t.Errorf("%s: body differs from /: %q", target, resp.Body.String())
		}
	}
	if ct := root.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
}

func TestMessagePage(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	for _, target := range []string{"/message.html", "/message.html?x=1"} {
		resp := do(router, http.MethodGet, target, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", target, resp.Code)
		}
		if resp.Body.String() != testMessageHTML {
			t.Errorf("%s: unexpected body: %q", target, resp.Body.String())
		}
	}
}

func TestUnknownPathReturnsErrorPage(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	for _, target := range []string{"/nonexistent.file", "/admin/index.html", "/send_message"} {
		resp := do(router, http.MethodGet, target, "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", target, resp.Code)
		}
		if resp.Body.String() != testErrorHTML {
			t.Errorf("%s: expected error page, got %q", target, resp.Body.String())
		}
	}
}

func TestStaticAssets(t *testing.T) {
	router, _ := newTestRouter(t, createStaticDir(t), &fakeRelay{})

	tests := []struct {
		target      string
		status      int
		contentType string
		body        string
	}{
		{"/static/style.css", http.StatusOK, "text/css", "body { color: black; }"},
		{"/static/css/extra.css?v=3", http.StatusOK, "text/css", ".x {}"},
		{"/static/logo.svg", http.StatusOK, "image/svg+xml", ""},
		{"/static/notes.zzunknown", http.StatusOK, "text/plain", "plain words only"},
		{"/static/index.html", http.StatusOK, "text/html", testIndexHTML},
		{"/static/missing.js", http.StatusNotFound, "text/html", testErrorHTML},
		{"/static/css", http.StatusNotFound, "text/html", testErrorHTML},
		{"/static/", http.StatusNotFound, "text/html", testErrorHTML},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp := do(router, http.MethodGet, tt.target, "")
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("expected content type %q, got %q", tt.contentType, ct)
			}
			if tt.body != "" && resp.Body.String() != tt.body {
				t.Errorf("unexpected body: %q", resp.Body.String())
			}
		})
	}
}

func TestStaticPathContainment(t *testing.T) {
	staticDir := createStaticDir(t)
	secret := filepath.Join(filepath.Dir(staticDir), "secret.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	router, _ := newTestRouter(t, staticDir, &fakeRelay{})

	for _, target := range []string{
		"/static/../secret.txt",
		"/static/%2e%2e/secret.txt",
		"/static/css/../../secret.txt",
		"/static/..%2fsecret.txt",
	} {
		resp := do(router, http.MethodGet, target, "")
		if strings.Contains(resp.Body.String(), "top secret") {
			t.Fatalf("%s: escaped static root", target)
		}
		if resp.Code == http.StatusOK {
			t.Fatalf("%s: expected non-200, got %d", target, resp.Code)
		}
	}
}

func TestResolveStatic(t *testing.T) {
	root := filepath.Join("srv", "static")

	tests := []struct {
		in   string
		want string
	}{
		{"/style.css", "style.css"},
		{"css/extra.css", filepath.Join("css", "extra.css")},
		{"/../../etc/passwd", filepath.Join("etc", "passwd")},
		{"/a/../../b", "b"},
		{"/", "."},
	}

	for _, tt := range tests {
		got, ok := resolveStatic(root, tt.in)
		if !ok {
			t.Errorf("%q: unexpectedly rejected", tt.in)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestStaticSymlinks(t *testing.T) {
	staticDir := createStaticDir(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	links := map[string]string{
		"leak.txt":  secret,
		"leakdir":   outside,
		"alias.css": "style.css",
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(staticDir, name)); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
	}

	router, _ := newTestRouter(t, staticDir, &fakeRelay{})

	for _, target := range []string{"/static/leak.txt", "/static/leakdir/secret.txt"} {
		resp := do(router, http.MethodGet, target, "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", target, resp.Code)
		}
		if strings.Contains(resp.Body.String(), "top secret") {
			t.Fatalf("%s: followed symlink out of static root", target)
		}
	}

	resp := do(router, http.MethodGet, "/static/alias.css", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("in-root symlink: expected status 200, got %d", resp.Code)
	}
	if resp.Body.String() != "body { color: black; }" {
		t.Errorf("in-root symlink: unexpected body %q", resp.Body.String())
	}
}

func TestMissingFixedPageFallsBackToErrorPage(t *testing.T) {
	staticDir := createStaticDir(t)
	if err := os.Remove(filepath.Join(staticDir, messagePage)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	router, _ := newTestRouter(t, staticDir, &fakeRelay{})

	resp := do(router, http.MethodGet, "/message.html", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	if resp.Body.String() != testErrorHTML {
		t.Errorf("expected error page, got %q", resp.Body.String())
	}
}

func TestMissingErrorPageStillReturns404(t *testing.T) {
	router, _ := newTestRouter(t, t.TempDir(), &fakeRelay{})

	for _, target := range []string{"/", "/nope", "/static/x.css"} {
		resp := do(router, http.MethodGet, target, "")
		if resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", target, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "404 page not found") {
			t.Errorf("%s: unexpected body %q", target, resp.Body.String())
		}
	}
}
