package main

import (
	"net/http"
	"strings"

	"nanas/models"
	"nanas/pkg/flash"
	"nanas/pkg/report"

	"github.com/gin-gonic/gin"
)

var staticPages = map[string]bool{
	"about":        true,
	"mission":      true,
	"resources":    true,
	"get-involved": true,
	"contact":      true,
	"team":         true,
	"blog":         true,
	"faq":          true,
	"help":         true,
	"privacy":      true,
}

// homeHandler shows the next upcoming event, if any.
func (s *server) homeHandler(c *gin.Context) {
	events, err := s.upcomingEvents(c, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var next *models.Event
	if len(events) > 0 {
		next = &events[0]
	}
	c.JSON(http.StatusOK, gin.H{"view": "home/index", "next_event": next, "notices": flash.Pop(c)})
}

func (s *server) pageHandler(c *gin.Context) {
	name := strings.ToLower(c.Param("name"))
	if !staticPages[name] {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "home/" + name, "page": name, "notices": flash.Pop(c)})
}

func (s *server) newsHandler(c *gin.Context) {
	events, err := s.upcomingEvents(c, 4)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var posts []models.BlogPost
	if err := s.db.WithContext(c.Request.Context()).Order("created_at desc").Limit(4).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "home/news_events", "events": events, "posts": posts, "notices": flash.Pop(c)})
}

// dashboardHandler reports this year's donation totals by month.
func (s *server) dashboardHandler(c *gin.Context) {
	year := s.now().UTC().Year()
	totals, err := report.MonthlyTotals(c.Request.Context(), s.db, year)
	if err != nil {
		s.log.Error("dashboard totals failed", "year", year, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "admin/dashboard", "year": year, "months": totals})
}
