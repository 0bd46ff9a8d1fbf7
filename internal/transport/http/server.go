package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/form"
	"github.com/vovakirdan/formrelay/internal/metrics"
)

// Relay forwards a decoded submission to the listener process.
type Relay interface {
	Send(ctx context.Context, sub form.Submission) error
}

// NewServer builds the static/form HTTP server. The route table is fixed at construction.
func NewServer(cfg config.HTTPConfig, relay Relay, m *metrics.Metrics, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, relay, m, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a new gin engine.
func NewRouter(cfg config.HTTPConfig, relay Relay, m *metrics.Metrics, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware(m))

	pages := NewPageHandlers(cfg.StaticDir, logger)
	messages := NewMessageHandlers(relay, cfg.MaxBodyBytes, m, logger)

	router.GET("/", pages.Index)
	router.GET("/index.html", pages.Index)
	router.GET("/message.html", pages.MessageForm)
	router.GET("/static/*filepath", pages.Static)
	router.POST(cfg.SendPath, messages.Send)

	router.GET("/healthz", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.NoRoute(pages.NotFound)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
