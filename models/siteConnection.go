package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	ConnectionStatusConnected = "Connected"
	ConnectionStatusFailed    = "Failed"
)

// DefaultTimeoutSeconds applies when a connection has no timeout override.
const DefaultTimeoutSeconds = 45

// SiteConnection is a configured partner site. The sync flow only ever
// mutates the status fields (connection_status, last_sync_at,
// last_sync_item_count); identity and credentials are operator-owned.
type SiteConnection struct {
	ID        int    `gorm:"primary_key" json:"id"`
	SiteName  string `gorm:"size:140;not null;unique" json:"site_name"`
	SiteURL   string `gorm:"size:255;not null" json:"site_url"`
	APIKey    string `gorm:"size:140;not null" json:"api_key"`
	APISecret string `gorm:"size:140" json:"api_secret"`
	// No default tag; gorm omits zero-valued defaulted fields on create,
	// so is_active=false would never reach the INSERT.
	IsActive               bool       `gorm:"not null" json:"is_active"`
	DisableSSLVerification bool       `gorm:"not null;default:false" json:"disable_ssl_verification"`
	TimeoutSeconds         int        `gorm:"not null;default:0" json:"timeout_seconds"`
	ConnectionStatus       string     `gorm:"size:20" json:"connection_status"`
	LastSyncAt             *time.Time `json:"last_sync_at"`
	LastSyncItemCount      int        `gorm:"not null;default:0" json:"last_sync_item_count"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSiteConnection struct {
	SiteName               string `json:"site_name" binding:"required" validate:"required"`
	SiteURL                string `json:"site_url" binding:"required" validate:"required,url"`
	APIKey                 string `json:"api_key" binding:"required" validate:"required"`
	APISecret              string `json:"api_secret"`
	IsActive               *bool  `json:"is_active"`
	DisableSSLVerification bool   `json:"disable_ssl_verification"`
	TimeoutSeconds         int    `json:"timeout_seconds" validate:"gte=0"`
}

// BeforeSave keeps the stored URL in its normalized trailing-slash form so
// endpoint paths can be appended directly.
func (s *SiteConnection) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(s.SiteURL) == "" {
		return errors.New("site URL is required")
	}
	s.SiteURL = NormalizeSiteURL(s.SiteURL)
	return nil
}

func NormalizeSiteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	return strings.TrimRight(raw, "/") + "/"
}

// Timeout resolves the per-connection timeout override.
func (s *SiteConnection) Timeout() time.Duration {
	seconds := s.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func CreateSiteConnection(db *gorm.DB, ctx context.Context, input *NewSiteConnection) (*SiteConnection, error) {
	conn := SiteConnection{
		SiteName:               strings.TrimSpace(input.SiteName),
		SiteURL:                input.SiteURL,
		APIKey:                 strings.TrimSpace(input.APIKey),
		APISecret:              strings.TrimSpace(input.APISecret),
		IsActive:               true,
		DisableSSLVerification: input.DisableSSLVerification,
		TimeoutSeconds:         input.TimeoutSeconds,
	}
	if input.IsActive != nil {
		conn.IsActive = *input.IsActive
	}
	if err := db.WithContext(ctx).Create(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func UpdateSiteConnection(db *gorm.DB, ctx context.Context, id int, input *NewSiteConnection) (*SiteConnection, error) {
	conn, err := GetSiteConnection(db, ctx, id)
	if err != nil {
		return nil, err
	}

	conn.SiteName = strings.TrimSpace(input.SiteName)
	conn.SiteURL = input.SiteURL
	conn.APIKey = strings.TrimSpace(input.APIKey)
	conn.APISecret = strings.TrimSpace(input.APISecret)
	conn.DisableSSLVerification = input.DisableSSLVerification
	conn.TimeoutSeconds = input.TimeoutSeconds
	if input.IsActive != nil {
		conn.IsActive = *input.IsActive
	}
	if err := db.WithContext(ctx).Save(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}

func GetSiteConnection(db *gorm.DB, ctx context.Context, id int) (*SiteConnection, error) {
	var conn SiteConnection
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func GetSiteConnectionByName(db *gorm.DB, ctx context.Context, siteName string) (*SiteConnection, error) {
	var conn SiteConnection
	if err := db.WithContext(ctx).Where("site_name = ?", siteName).Take(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func ListSiteConnections(db *gorm.DB, ctx context.Context) ([]SiteConnection, error) {
	var conns []SiteConnection
	if err := db.WithContext(ctx).Order("site_name").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

func ListActiveSiteConnections(db *gorm.DB, ctx context.Context) ([]SiteConnection, error) {
	var conns []SiteConnection
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("site_name").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

func DeleteSiteConnection(db *gorm.DB, ctx context.Context, id int) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&SiteConnection{}).Error
}

// MarkConnectionStatus flips only the derived status fields; last-writer-wins
// with any concurrent run, like the rest of the status columns. Column-level
// writes here so the BeforeSave URL guard never runs against an empty model.
func (s *SiteConnection) MarkConnectionStatus(db *gorm.DB, ctx context.Context, status string) error {
	s.ConnectionStatus = status
	return db.WithContext(ctx).Model(&SiteConnection{}).
		Where("id = ?", s.ID).
		UpdateColumn("connection_status", status).Error
}

// MarkSyncedNow records a completed sync on the connection record.
func (s *SiteConnection) MarkSyncedNow(db *gorm.DB, ctx context.Context, itemCount int, at time.Time) error {
	s.ConnectionStatus = ConnectionStatusConnected
	s.LastSyncAt = &at
	s.LastSyncItemCount = itemCount
	return db.WithContext(ctx).Model(&SiteConnection{}).
		Where("id = ?", s.ID).
		UpdateColumns(map[string]interface{}{
			"connection_status":    ConnectionStatusConnected,
			"last_sync_at":         at,
			"last_sync_item_count": itemCount,
		}).Error
}
