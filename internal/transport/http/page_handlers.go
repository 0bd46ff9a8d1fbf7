package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	indexPage   = "index.html"
	messagePage = "message.html"
	errorPage   = "error.html"

	htmlContentType = "text/html; charset=utf-8"
)

// PageHandlers serves the fixed pages and static assets from one directory.
type PageHandlers struct {
	staticDir string
	log       *zerolog.Logger
}

// NewPageHandlers creates page handlers rooted at staticDir.
func NewPageHandlers(staticDir string, logger *zerolog.Logger) *PageHandlers {
	return &PageHandlers{
		staticDir: staticDir,
		log:       logger,
	}
}

// Index serves the index page.
// GET /, GET /index.html
func (h *PageHandlers) Index(c *gin.Context) {
	h.servePage(c, indexPage)
}

// MessageForm serves the form page.
// GET /message.html
func (h *PageHandlers) MessageForm(c *gin.Context) {
	h.servePage(c, messagePage)
}

// NotFound serves the error page with 404 for every unknown route.
func (h *PageHandlers) NotFound(c *gin.Context) {
	h.serveError(c)
}

// Static streams a file from the static directory.
// GET /static/*filepath
func (h *PageHandlers) Static(c *gin.Context) {
	rel, ok := resolveStatic(h.staticDir, c.Param("filepath"))
	if !ok {
		h.log.Warn().Str("path", c.Request.URL.Path).Msg("static path escapes root")
		h.serveError(c)
		return
	}

	// os.Root refuses symlinks that point outside staticDir.
	root, err := os.OpenRoot(h.staticDir)
	if err != nil {
		h.log.Error().Err(err).Str("dir", h.staticDir).Msg("failed to open static root")
		h.serveError(c)
		return
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.log.Warn().Err(err).Str("file", rel).Msg("failed to open static file")
		}
		h.serveError(c)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		h.serveError(c)
		return
	}

	c.Header("Content-Type", contentType(rel, f))
	// ServeContent, unlike ServeFile, does not redirect */index.html requests.
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (h *PageHandlers) servePage(c *gin.Context, name string) {
	data, err := os.ReadFile(filepath.Join(h.staticDir, name))
	if err != nil {
		h.log.Error().Err(err).Str("page", name).Msg("failed to read page")
		h.serveError(c)
		return
	}
	c.Data(http.StatusOK, htmlContentType, data)
}

func (h *PageHandlers) serveError(c *gin.Context) {
	data, err := os.ReadFile(filepath.Join(h.staticDir, errorPage))
	if err != nil {
		h.log.Error().Err(err).Str("page", errorPage).Msg("failed to read error page")
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.Data(http.StatusNotFound, htmlContentType, data)
}
