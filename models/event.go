package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a calendar entry volunteers can sign up for.
type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Description string    `gorm:"type:text" json:"description"`
	Date        time.Time `gorm:"index;not null" json:"date" binding:"required"`
	Location    string    `gorm:"size:255" json:"location" binding:"max=255"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns a random id when the caller left it empty.
func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Volunteer links a user to an event they signed up for.
type Volunteer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_volunteer_event_user" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_volunteer_event_user" json:"event_id"`
	Event      Event     `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;" json:"-"`
	SignedUpAt time.Time `gorm:"not null" json:"signed_up_at"`
}

func (v *Volunteer) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.SignedUpAt.IsZero() {
		v.SignedUpAt = time.Now().UTC()
	}
	return nil
}
