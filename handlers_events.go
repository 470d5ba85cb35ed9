package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nanas/models"
	"nanas/pkg/dbutil"
	"nanas/pkg/flash"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const eventsPageSize = 10

// startOfToday is midnight UTC of the current day; events on it still count
// as upcoming.
func (s *server) startOfToday() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *server) upcomingEvents(c *gin.Context, limit int) ([]models.Event, error) {
	var events []models.Event
	q := s.db.WithContext(c.Request.Context()).Where("date >= ?", s.startOfToday()).Order("date asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func eventSearch(search string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if search == "" {
			return db
		}
		like := "%" + strings.ToLower(search) + "%"
		return db.Where("LOWER(title) LIKE ? OR LOWER(location) LIKE ?", like, like)
	}
}

// listEventsHandler pages through events, newest first, optionally filtered
// by a title or location substring.
func (s *server) listEventsHandler(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	db := s.db.WithContext(c.Request.Context())
	var total int64
	if err := db.Model(&models.Event{}).Scopes(eventSearch(search)).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var events []models.Event
	err = db.Scopes(eventSearch(search)).
		Order("date desc").
		Offset((page - 1) * eventsPageSize).
		Limit(eventsPageSize).
		Find(&events).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"search":      search,
		"page":        page,
		"total_pages": (total + eventsPageSize - 1) / eventsPageSize,
		"notices":     flash.Pop(c),
	})
}

func bindEvent(c *gin.Context) (models.Event, bool) {
	var evt models.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return evt, false
	}
	evt.Title = strings.TrimSpace(evt.Title)
	if evt.Title == "" || evt.Date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and date are required"})
		return evt, false
	}
	evt.Date = evt.Date.UTC()
	return evt, true
}

func (s *server) createEventHandler(c *gin.Context) {
	evt, ok := bindEvent(c)
	if !ok {
		return
	}
	evt.ID = uuid.Nil
	if err := s.db.WithContext(c.Request.Context()).Create(&evt).Error; err != nil {
		s.log.Error("create event failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, evt)
}

// loadEvent resolves the :id path parameter, writing 404 when it is unknown.
func (s *server) loadEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return nil, false
	}
	var evt models.Event
	err = s.db.WithContext(c.Request.Context()).First(&evt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &evt, true
}

func (s *server) getEventHandler(c *gin.Context) {
	evt, ok := s.loadEvent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (s *server) updateEventHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	upd, ok := bindEvent(c)
	if !ok {
		return
	}
	if upd.ID != uuid.Nil && upd.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id mismatch"})
		return
	}
	existing, ok := s.loadEvent(c)
	if !ok {
		return
	}
	existing.Title, existing.Description = upd.Title, upd.Description
	existing.Date, existing.Location = upd.Date, upd.Location
	err = s.db.WithContext(c.Request.Context()).Model(existing).
		Select("title", "description", "date", "location").
		Updates(existing).Error
	if err != nil {
		s.log.Error("update event failed", "event_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (s *server) deleteEventHandler(c *gin.Context) {
	evt, ok := s.loadEvent(c)
	if !ok {
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Delete(evt).Error; err != nil {
		s.log.Error("delete event failed", "event_id", evt.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

// eventDetailsHandler is the compact shape the calendar widget fetches.
func (s *server) eventDetailsHandler(c *gin.Context) {
	evt, ok := s.loadEvent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        evt.Title,
		"description": evt.Description,
		"date":        evt.Date.Format("2006-01-02"),
		"location":    evt.Location,
	})
}

func (s *server) volunteerFormHandler(c *gin.Context) {
	events, err := s.upcomingEvents(c, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	options := make([]gin.H, 0, len(events))
	for _, e := range events {
		options = append(options, gin.H{
			"value": e.ID.String(),
			"text":  fmt.Sprintf("%s (%s)", e.Title, e.Date.Format("Jan 2, 2006")),
		})
	}
	c.JSON(http.StatusOK, gin.H{"view": "volunteers/volunteer_for_event", "events": options, "notices": flash.Pop(c)})
}

// volunteerHandler signs the current user up for an event. Signing up twice
// is not an error.
func (s *server) volunteerHandler(c *gin.Context) {
	var req struct {
		EventID string `form:"event_id" json:"event_id" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", eventID).Count(&n).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	err = s.db.WithContext(ctx).
		Where(models.Volunteer{UserID: user.ID, EventID: eventID}).
		FirstOrCreate(&models.Volunteer{UserID: user.ID, EventID: eventID}).Error
	if err != nil && !dbutil.IsUniqueViolation(err) {
		s.log.Error("volunteer sign-up failed", "user", user.Username, "event_id", eventID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-up failed"})
		return
	}
	flash.Set(c, "volunteer", "Thank you for volunteering!")
	c.Redirect(http.StatusSeeOther, "/events")
}
