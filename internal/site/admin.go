package site

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminCookie  = "admin_token"
	visitorLimit = 200
)

type adminAuth struct {
	username string
	password string
	// token is regenerated every start, so restarting logs everyone out.
	token string
}

func newAdminAuth(username, password string) (adminAuth, error) {
	token, err := generateToken()
	if err != nil {
		return adminAuth{}, err
	}
	return adminAuth{username: username, password: password, token: token}, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (a adminAuth) valid(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(a.username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	return u&p == 1
}

// requireAdmin redirects to the login page unless the admin cookie matches.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.admin.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) setupAdminRoutes() {
	s.engine.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{})
	})

	s.engine.POST("/admin/login", func(c *gin.Context) {
		visitor := s.hasher.Hash(c.ClientIP())
		if !s.admin.valid(c.PostForm("username"), c.PostForm("password")) {
			s.logger.Warn("Failed admin login attempt", zap.String("visitor", visitor))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, s.admin.token, int((24 * time.Hour).Seconds()), "/admin", "", c.Request.TLS != nil, true)
		s.logger.Info("Admin login", zap.String("visitor", visitor))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	s.engine.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := s.engine.Group("/admin")
	admin.Use(s.requireAdmin())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.visitors.Stats(c.Request.Context(), time.Now())
		if err != nil {
			s.logger.Error("Error loading admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.visitors.Stats(c.Request.Context(), time.Now())
		if err != nil {
			s.logger.Error("Error loading admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visits, err := s.visitors.Recent(c.Request.Context(), visitorLimit)
		if err != nil {
			s.logger.Error("Error loading visitors", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visits,
			"limit":    visitorLimit,
		})
	})

	// Downloadable stats for backups or offline analysis.
	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.visitors.Stats(c.Request.Context(), time.Now())
		if err != nil {
			s.logger.Error("Error exporting admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=visitor-stats.json")
		s.logger.Info("Admin stats exported", zap.String("visitor", s.hasher.Hash(c.ClientIP())))
		c.JSON(http.StatusOK, stats)
	})

	// Runs the retention cleanup now instead of waiting for the next tick.
	admin.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		removed, err := s.visitors.Prune(c.Request.Context(), time.Now().Add(-s.retention))
		if err != nil {
			s.logger.Error("Privacy cleanup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "privacy cleanup failed"})
			return
		}
		s.logger.Info("Privacy cleanup", zap.Int64("removed", removed))
		c.JSON(http.StatusOK, gin.H{"message": "privacy cleanup complete", "removed": removed})
	})
}
