package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"nanas/models"
	"nanas/pkg/accounts"
	"nanas/pkg/config"
	"nanas/pkg/donations"
	"nanas/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const (
	authCookie = "auth_token"
	ctxUser    = "user"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nanas_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nanas_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// server carries what the handlers share. It replaces package globals so
// tests can build as many independent instances as they need.
type server struct {
	cfg       *config.Config
	db        *gorm.DB
	donations *donations.Controller
	files     storage.Store
	log       *slog.Logger
	now       func() time.Time

	bankList atomic.Pointer[[]string]
}

func newServer(cfg *config.Config, db *gorm.DB, dc *donations.Controller, files storage.Store, log *slog.Logger) *server {
	s := &server{cfg: cfg, db: db, donations: dc, files: files, log: log, now: time.Now}
	s.setBanks(cfg.Donations.Banks)
	return s
}

func (s *server) banks() []string {
	if b := s.bankList.Load(); b != nil {
		return *b
	}
	return nil
}

// setBanks swaps the bank list offered on the donation form. Safe to call
// while requests are in flight.
func (s *server) setBanks(b []string) {
	cp := append([]string(nil), b...)
	s.bankList.Store(&cp)
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.Use(httpMetrics(), s.identify())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/register", s.registerHandler)
	r.POST("/login", s.loginHandler)
	r.POST("/logout", s.logoutHandler)
	r.POST("/refresh", s.refreshHandler)
	r.POST("/revoke_refresh", s.revokeRefreshHandler)
	r.GET("/me", requireAuth(), s.meHandler)

	r.GET("/", s.homeHandler)
	r.GET("/pages/:name", s.pageHandler)
	r.GET("/news", s.newsHandler)

	d := r.Group("/donations")
	d.GET("/create", s.donationFormHandler)
	d.POST("/create", s.createDonationHandler)
	d.GET("/success", s.donationSuccessHandler)
	d.GET("/thank-you", s.thankYouHandler)

	admin := r.Group("", requireAuth(), requireAdmin())
	admin.GET("/events", s.listEventsHandler)
	admin.POST("/events", s.createEventHandler)
	admin.GET("/events/:id", s.getEventHandler)
	admin.PUT("/events/:id", s.updateEventHandler)
	admin.DELETE("/events/:id", s.deleteEventHandler)
	admin.GET("/admin/dashboard", s.dashboardHandler)
	r.GET("/events/:id/details", requireAuth(), s.eventDetailsHandler)

	r.GET("/volunteer", s.volunteerFormHandler)
	r.POST("/volunteer", requireAuth(), s.volunteerHandler)

	r.GET("/blog", s.listBlogHandler)
	r.POST("/blog", s.createBlogHandler)

	if ls, ok := s.files.(*storage.LocalStore); ok {
		r.Static(ls.PublicPrefix, ls.BaseDir)
	}
}

func httpMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// identify resolves the caller from a Bearer token or the auth cookie. It
// never aborts; routes that need a user add requireAuth.
func (s *server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimSpace(h[len("Bearer "):])
		} else if v, err := c.Cookie(authCookie); err == nil {
			raw = v
		}
		if raw != "" {
			if username, err := s.parseAccessToken(raw); err == nil {
				if u, err := accounts.FindByUsername(c.Request.Context(), s.db, username); err == nil {
					c.Set(ctxUser, u)
				}
			}
		}
		c.Next()
	}
}

// currentUser returns the authenticated user or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
