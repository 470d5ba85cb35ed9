package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultProfilePhoto is used for blog posts submitted without an author photo.
const DefaultProfilePhoto = "https://i.pravatar.cc/300"

// BlogPost is a community submission: a PDF article plus author details.
type BlogPost struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	AuthorName       string    `gorm:"size:255;not null" json:"author_name"`
	AuthorEmail      string    `gorm:"size:255" json:"author_email,omitempty"`
	WebsiteLink      string    `gorm:"size:512" json:"website_link,omitempty"`
	PdfFilePath      string    `gorm:"size:512;not null" json:"pdf_file_path"`
	ProfilePhotoPath string    `gorm:"size:512" json:"profile_photo_path"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	Uploads          []Upload  `gorm:"foreignKey:BlogPostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (b *BlogPost) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Upload records one stored file. StorePath is what storage returned and is
// what clients use to fetch the bytes back.
type Upload struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	FileName    string     `gorm:"size:255;not null"` // name as submitted by the client
	StorePath   string     `gorm:"column:store_path;size:512;not null"`
	ContentType string     `gorm:"size:128"`
	Size        int64      `gorm:"not null"`
	BlogPostID  *uuid.UUID `gorm:"type:uuid;index"`
}
