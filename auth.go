package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"nanas/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshedTTL    = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

var errInvalidToken = errors.New("invalid token")

// issueAccessToken signs an HS256 token carrying the username and role name.
func (s *server) issueAccessToken(u *models.User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": u.Username,
		"role":     u.Role.Name,
		"exp":      s.now().Add(ttl).Unix(),
	})
	return token.SignedString(s.cfg.JWTSecret)
}

// parseAccessToken returns the username of a valid token.
func (s *server) parseAccessToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", errInvalidToken
	}
	return username, nil
}

func hashRefreshToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// createRefreshToken stores the hash of a new random token and returns the raw value.
func (s *server) createRefreshToken(ctx context.Context, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashRefreshToken(raw), ExpiresAt: s.now().Add(refreshTokenTTL)}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return "", err
	}
	return raw, nil
}

func (s *server) findRefreshToken(ctx context.Context, raw string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hashRefreshToken(raw)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *server) revokeRefreshToken(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("id = ?", id).Update("revoked", true).Error
}
