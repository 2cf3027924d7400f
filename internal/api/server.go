// Package api serves the listing pages over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	apperrors "findmysecurity/internal/common/errors"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/observability"
	postcodevalidator "findmysecurity/internal/listing/postcode-validator"
	"findmysecurity/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Pages           []Page
	Validator       *postcodevalidator.Validator
	Sessions        SessionChecker
	Drafts          *DraftStore
	CookieName      string
	LoginURL        string
	AllowedOrigins  []string
	ReadinessChecks map[string]ReadinessCheck
	Observability   *observability.Observability
	Logger          logger.Logger
}

type Server struct {
	pages      map[models.EntityType]Page
	validator  *postcodevalidator.Validator
	sessions   SessionChecker
	drafts     *DraftStore
	cookieName string
	loginURL   string
	origins    []string
	checks     map[string]ReadinessCheck
	obs        *observability.Observability
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewServer(opts Options) *Server {
	log := logger.ForComponent(opts.Logger, "api")
	s := &Server{
		pages:      make(map[models.EntityType]Page, len(opts.Pages)),
		validator:  opts.Validator,
		sessions:   opts.Sessions,
		drafts:     opts.Drafts,
		cookieName: opts.CookieName,
		loginURL:   opts.LoginURL,
		origins:    opts.AllowedOrigins,
		checks:     opts.ReadinessChecks,
		obs:        opts.Observability,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
	}
	for _, p := range opts.Pages {
		s.pages[p.Schema().Entity] = p
	}
	return s
}

// Router builds the gin engine with every route and middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(s.logger))
	router.Use(Metrics(s.obs))
	router.Use(CORS(s.origins))

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(Session(s.sessions, s.cookieName, s.logger))
	{
		v1.GET("/listings/:entity", s.getListing)
		v1.POST("/listings/:entity/mutations", s.postMutation)
		v1.GET("/listings/:entity/draft", s.getDraft)
		v1.GET("/postcodes/:postcode/validation", s.validatePostcode)
	}
	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failures": failures})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"failures": failures,
			"time":     time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}
