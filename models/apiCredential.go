package models

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ApiCredential is an inbound key/secret pair issued to a partner site so it
// can call this site's provider endpoints.
type ApiCredential struct {
	ID        int       `gorm:"primary_key" json:"id"`
	APIKey    string    `gorm:"size:140;not null;unique" json:"api_key"`
	APISecret string    `gorm:"size:140;not null" json:"-"`
	Label     string    `gorm:"size:140;not null" json:"label"`
	Enabled   bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func FindApiCredentialByKey(db *gorm.DB, ctx context.Context, apiKey string) (*ApiCredential, error) {
	var cred ApiCredential
	if err := db.WithContext(ctx).Where("api_key = ?", apiKey).Take(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// Matches reports whether the presented secret is valid for this credential.
func (c *ApiCredential) Matches(secret string) bool {
	if !c.Enabled {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.APISecret), []byte(strings.TrimSpace(secret))) == 1
}
