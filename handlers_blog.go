package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"nanas/models"
	"nanas/pkg/flash"
	"nanas/pkg/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const (
	blogFolder   = "blogs"
	maxPDFSize   = 10 << 20
	maxPhotoSize = 5 << 20
	photoMaxSide = 300
	recentPosts  = 20
)

var (
	errNotPDF   = errors.New("pdf_file must be a PDF document")
	errNotImage = errors.New("profile_photo must be an image")
)

const msgBlogMissingFields = "Please fill all required fields and upload a PDF."

type blogRequest struct {
	Title       string `form:"title" binding:"required,max=255"`
	AuthorName  string `form:"author_name" binding:"required,max=255"`
	AuthorEmail string `form:"author_email" binding:"omitempty,email,max=255"`
	WebsiteLink string `form:"website_link" binding:"omitempty,url,max=512"`
}

// createBlogHandler accepts a community post: author details, a PDF and an
// optional author photo.
func (s *server) createBlogHandler(c *gin.Context) {
	var req blogRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBlogMissingFields, "detail": err.Error()})
		return
	}
	pdf, err := c.FormFile("pdf_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBlogMissingFields})
		return
	}
	ctx := c.Request.Context()
	pdfUpload, err := s.storePDF(ctx, pdf)
	if err != nil {
		s.uploadFailed(c, err)
		return
	}
	post := models.BlogPost{
		Title:            strings.TrimSpace(req.Title),
		AuthorName:       strings.TrimSpace(req.AuthorName),
		AuthorEmail:      strings.TrimSpace(req.AuthorEmail),
		WebsiteLink:      strings.TrimSpace(req.WebsiteLink),
		PdfFilePath:      pdfUpload.StorePath,
		ProfilePhotoPath: models.DefaultProfilePhoto,
		Uploads:          []models.Upload{*pdfUpload},
	}
	if photo, err := c.FormFile("profile_photo"); err == nil {
		up, err := s.storePhoto(ctx, photo)
		if err != nil {
			s.uploadFailed(c, err)
			return
		}
		post.ProfilePhotoPath = up.StorePath
		post.Uploads = append(post.Uploads, *up)
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		s.log.Error("save blog post failed", "title", post.Title, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	s.log.Info("blog post submitted", "post_id", post.ID, "author", post.AuthorName)
	flash.Set(c, "blog", "Thank you! Your post has been submitted.")
	c.Redirect(http.StatusSeeOther, "/events")
}

func (s *server) uploadFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, errNotPDF), errors.Is(err, errNotImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("store upload failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
	}
}

func (s *server) storePDF(ctx context.Context, fh *multipart.FileHeader) (*models.Upload, error) {
	if fh.Size > maxPDFSize {
		return nil, fmt.Errorf("%w: pdf_file (max 10MB)", storage.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, err
	}
	if !mt.Is("application/pdf") {
		return nil, errNotPDF
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	p, err := s.files.Put(ctx, blogFolder, fh.Filename, "application/pdf", f)
	if err != nil {
		return nil, err
	}
	return &models.Upload{FileName: fh.Filename, StorePath: p, ContentType: "application/pdf", Size: fh.Size}, nil
}

// storePhoto shrinks the author photo before storing it as JPEG.
func (s *server) storePhoto(ctx context.Context, fh *multipart.FileHeader) (*models.Upload, error) {
	if fh.Size > maxPhotoSize {
		return nil, fmt.Errorf("%w: profile_photo (max 5MB)", storage.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	thumb, err := storage.Thumbnail(f, photoMaxSide)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotImage, err)
	}
	size := int64(thumb.Len())
	name := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)) + ".jpg"
	p, err := s.files.Put(ctx, blogFolder, name, "image/jpeg", bytes.NewReader(thumb.Bytes()))
	if err != nil {
		return nil, err
	}
	return &models.Upload{FileName: fh.Filename, StorePath: p, ContentType: "image/jpeg", Size: size}, nil
}

func (s *server) listBlogHandler(c *gin.Context) {
	var posts []models.BlogPost
	err := s.db.WithContext(c.Request.Context()).Order("created_at desc").Limit(recentPosts).Find(&posts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "blog/index", "posts": posts, "notices": flash.Pop(c)})
}
