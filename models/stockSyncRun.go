package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	SyncRunStatusStarted    = "Started"
	SyncRunStatusFetching   = "Fetching"
	SyncRunStatusProcessing = "Processing"
	SyncRunStatusSuccess    = "Success"
	SyncRunStatusFailed     = "Failed"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredBatch  = "batch"
)

// ResponseSnippetLimit bounds the raw-body excerpt kept on failed runs.
const ResponseSnippetLimit = 500

// StockSyncRun is the audit record for one pull attempt against one site.
// It is created in the Started state before the network call, so a crash
// mid-flight still leaves an inspectable row. Runs are never auto-deleted.
type StockSyncRun struct {
	ID               int        `gorm:"primary_key" json:"id"`
	SiteConnectionId int        `gorm:"index;not null" json:"site_connection_id"`
	SiteName         string     `gorm:"index;size:140;not null" json:"site_name"`
	Status           string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy      string     `gorm:"size:20" json:"triggered_by"`
	ItemsReceived    int        `gorm:"not null;default:0" json:"items_received"`
	ItemsInserted    int        `gorm:"not null;default:0" json:"items_inserted"`
	ErrorType        string     `gorm:"size:40" json:"error_type"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message"`
	ResponseSnippet  string     `gorm:"size:500" json:"response_snippet"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	DurationMs       int64      `gorm:"not null;default:0" json:"duration_ms"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// CreateStartedSyncRun opens the run record before any network traffic.
func CreateStartedSyncRun(db *gorm.DB, ctx context.Context, conn *SiteConnection, triggeredBy string) (*StockSyncRun, error) {
	run := StockSyncRun{
		SiteConnectionId: conn.ID,
		SiteName:         conn.SiteName,
		Status:           SyncRunStatusStarted,
		TriggeredBy:      triggeredBy,
		StartedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// MarkFetching transitions Started -> Fetching, immediately before the HTTP
// request goes out.
func (r *StockSyncRun) MarkFetching(db *gorm.DB, ctx context.Context) error {
	return r.updateStatus(db, ctx, SyncRunStatusFetching, nil)
}

// MarkProcessing transitions Fetching -> Processing, after a 2xx response
// and before parsing/merging.
func (r *StockSyncRun) MarkProcessing(db *gorm.DB, ctx context.Context) error {
	return r.updateStatus(db, ctx, SyncRunStatusProcessing, nil)
}

// MarkSuccess closes the run. Partial inserts (inserted < received) are
// still an overall Success; both counts are kept.
func (r *StockSyncRun) MarkSuccess(db *gorm.DB, ctx context.Context, received int, inserted int) error {
	r.ItemsReceived = received
	r.ItemsInserted = inserted
	return r.updateStatus(db, ctx, SyncRunStatusSuccess, map[string]interface{}{
		"items_received": received,
		"items_inserted": inserted,
	})
}

// MarkFailed closes the run with the classified error and an optional
// bounded raw-body snippet.
func (r *StockSyncRun) MarkFailed(db *gorm.DB, ctx context.Context, errType string, message string, snippet string) error {
	if len(snippet) > ResponseSnippetLimit {
		snippet = snippet[:ResponseSnippetLimit]
	}
	r.ErrorType = errType
	r.ErrorMessage = message
	r.ResponseSnippet = snippet
	return r.updateStatus(db, ctx, SyncRunStatusFailed, map[string]interface{}{
		"error_type":       errType,
		"error_message":    message,
		"response_snippet": snippet,
	})
}

func (r *StockSyncRun) updateStatus(db *gorm.DB, ctx context.Context, status string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": status}
	if status == SyncRunStatusSuccess || status == SyncRunStatusFailed {
		now := time.Now().UTC()
		r.FinishedAt = &now
		r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
		updates["finished_at"] = now
		updates["duration_ms"] = r.DurationMs
	}
	for k, v := range extra {
		updates[k] = v
	}
	r.Status = status
	return db.WithContext(ctx).Model(&StockSyncRun{}).
		Where("id = ?", r.ID).
		Updates(updates).Error
}

func GetStockSyncRun(db *gorm.DB, ctx context.Context, id int) (*StockSyncRun, error) {
	var run StockSyncRun
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func ListStockSyncRuns(db *gorm.DB, ctx context.Context, siteName string, limit int) ([]StockSyncRun, error) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	q := db.WithContext(ctx).Model(&StockSyncRun{}).Order("id desc").Limit(limit)
	if siteName != "" {
		q = q.Where("site_name = ?", siteName)
	}
	var runs []StockSyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
