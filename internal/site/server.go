// Package site serves the portfolio page over HTTP.
package site

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/milosz-l/portfolio/internal/assets"
	"github.com/milosz-l/portfolio/internal/content"
	"github.com/milosz-l/portfolio/internal/visitors"
)

// Options wires a Server. Visitors and Hasher may be nil, which turns
// visitor counting and the admin dashboard off.
type Options struct {
	Portfolio *content.Portfolio
	Bundle    *assets.Bundle
	Visitors  *visitors.Store
	Hasher    *visitors.Hasher
	Logger    *zap.Logger

	AdminUsername string
	AdminPassword string
	// Retention is shown on the privacy page and bounds on-demand cleanup.
	// Zero means one year.
	Retention time.Duration
	// TrustedProxies may set the client IP through X-Forwarded-For. Nil
	// trusts nobody and every visitor is identified by its connection.
	TrustedProxies []string
}

const defaultRetention = 365 * 24 * time.Hour

type Server struct {
	engine      *gin.Engine
	page        *Page
	bundle      *assets.Bundle
	testimonial string
	visitors    *visitors.Store
	hasher      *visitors.Hasher
	logger      *zap.Logger
	admin       adminAuth
	retention   time.Duration
}

// New builds the page from the loaded assets and sets up routes.
func New(opts Options) (*Server, error) {
	page, err := BuildPage(opts.Portfolio, opts.Bundle)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retention := opts.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	s := &Server{
		engine:      gin.New(),
		page:        page,
		bundle:      opts.Bundle,
		testimonial: opts.Portfolio.Experience.Testimonial.File,
		visitors:    opts.Visitors,
		hasher:      opts.Hasher,
		logger:      logger,
		retention:   retention,
	}

	if err := s.engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	s.engine.Use(requestID(), requestLogger(logger), gin.Recovery())
	s.engine.SetHTMLTemplate(templates)

	s.engine.StaticFS("/static", http.FS(staticFiles()))
	s.engine.GET("/assets/*path", s.handleAsset)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	pages := s.engine.Group("/")
	if s.visitors != nil && s.hasher != nil {
		pages.Use(s.trackVisitors())
	}
	pages.GET("/", s.handleIndex)
	pages.GET("/privacy", s.handlePrivacy)

	if s.visitors != nil && s.hasher != nil {
		if s.admin, err = newAdminAuth(opts.AdminUsername, opts.AdminPassword); err != nil {
			return nil, err
		}
		s.setupAdminRoutes()
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Page returns the view model the server renders.
func (s *Server) Page() *Page {
	return s.page
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.page)
}

func (s *Server) handlePrivacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":     "Privacy Policy",
		"retention": humanDuration(s.retention),
	})
}

// handleAsset serves the images and the testimonial PDF loaded at startup.
func (s *Server) handleAsset(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")

	if img, ok := s.bundle.Image(path); ok {
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, img.ContentType, img.Data)
		return
	}

	if path == s.testimonial {
		c.Header("Content-Disposition", "inline; filename=testimonial.pdf")
		c.Data(http.StatusOK, "application/pdf", s.bundle.Testimonial)
		return
	}

	c.AbortWithStatus(http.StatusNotFound)
}

// trackVisitors records successful page views with a hashed client IP.
func (s *Server) trackVisitors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.Writer.Status() != http.StatusOK {
			return
		}
		path := c.Request.URL.Path
		if path == "/privacy" || c.GetHeader("DNT") == "1" {
			return
		}

		err := s.visitors.Record(c.Request.Context(), visitors.Visit{
			HashedIP:  s.hasher.Hash(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
		})
		if err != nil {
			s.logger.Error("Error recording visitor", zap.Error(err))
		}
	}
}

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("Request", fields...)
		case strings.HasPrefix(c.Request.URL.Path, "/static/"), strings.HasPrefix(c.Request.URL.Path, "/assets/"):
			logger.Debug("Request", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

func humanDuration(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d <= 0:
		return "the retention period"
	case d%(365*day) == 0:
		if n := d / (365 * day); n > 1 {
			return strconv.FormatInt(int64(n), 10) + " years"
		}
		return "12 months"
	case d%day == 0:
		return strconv.FormatInt(int64(d/day), 10) + " days"
	default:
		return d.String()
	}
}
