package stocksync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Service runs stock synchronizations. All collaborators are explicit; no
// package-level database or logger is consulted.
type Service struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Locker *redislock.Client
}

func NewService(db *gorm.DB, logger *logrus.Logger, locker *redislock.Client) *Service {
	return &Service{DB: db, Logger: logger, Locker: locker}
}

// SyncFromSite pulls the full stock snapshot from one partner site and
// replaces its mirror. The run log walks Started -> Fetching -> Processing
// and ends in Success or Failed; configuration problems are rejected before
// a run record is ever created.
func (s *Service) SyncFromSite(ctx context.Context, conn *models.SiteConnection, triggeredBy string, filters StockFilters) SyncResult {
	ctx, span := otel.Tracer("stocksync").Start(ctx, "SyncFromSite")
	span.SetAttributes(attribute.String("site_name", conn.SiteName))
	defer span.End()

	if !conn.IsActive {
		return failedResult(ErrTypeConfig, "Site connection is disabled")
	}
	if strings.TrimSpace(conn.SiteURL) == "" || strings.TrimSpace(conn.APIKey) == "" {
		return failedResult(ErrTypeConfig, "site connection is missing its URL or API key")
	}

	release, err := acquireSyncLease(ctx, s.Locker, s.Logger, uint(conn.ID), conn.Timeout())
	if err == ErrSyncInProgress {
		return failedResult(ErrTypeLocked, err.Error())
	} else if err != nil {
		return failedResult(ErrTypeInternal, err.Error())
	}
	defer release()

	run, err := models.CreateStartedSyncRun(s.DB, ctx, conn, triggeredBy)
	if err != nil {
		config.LogError(s.Logger, "stocksync", "SyncFromSite", "create sync run", conn.SiteName, err)
		return failedResult(ErrTypeInternal, "could not create sync run: "+err.Error())
	}

	if err := run.MarkFetching(s.DB, ctx); err != nil {
		config.LogError(s.Logger, "stocksync", "SyncFromSite", "mark fetching", run.ID, err)
	}
	body, fetchErr := newRemoteClient(conn).get(ctx, ProviderMethodStock, filters.queryValues())
	if fetchErr != nil {
		return s.failRun(ctx, conn, run, fetchErr)
	}

	if err := run.MarkProcessing(s.DB, ctx); err != nil {
		config.LogError(s.Logger, "stocksync", "SyncFromSite", "mark processing", run.ID, err)
	}
	rows, normErr := normalizeStockResponse(body)
	if normErr != nil {
		return s.failRun(ctx, conn, run, normErr)
	}

	inserted, err := replaceMirrorEntries(s.DB, ctx, s.Logger, conn.SiteName, rows)
	if err != nil {
		return s.failRun(ctx, conn, run, &SyncError{Type: ErrTypeInternal, Message: "could not update mirrored stock: " + err.Error()})
	}

	now := time.Now().UTC()
	if err := run.MarkSuccess(s.DB, ctx, len(rows), inserted); err != nil {
		config.LogError(s.Logger, "stocksync", "SyncFromSite", "mark success", run.ID, err)
	}
	if err := conn.MarkSyncedNow(s.DB, ctx, inserted, now); err != nil {
		config.LogError(s.Logger, "stocksync", "SyncFromSite", "update connection status", conn.SiteName, err)
	}

	s.Logger.WithFields(logrus.Fields{
		"module":         "stocksync",
		"site_name":      conn.SiteName,
		"items_received": len(rows),
		"items_inserted": inserted,
		"run_id":         run.ID,
	}).Info("stock sync completed")

	return SyncResult{
		Success:       true,
		Message:       fmt.Sprintf("synced %d stock entries from %s", inserted, conn.SiteName),
		SiteName:      conn.SiteName,
		ItemsReceived: len(rows),
		ItemsInserted: inserted,
		RunId:         run.ID,
	}
}

func (s *Service) failRun(ctx context.Context, conn *models.SiteConnection, run *models.StockSyncRun, serr *SyncError) SyncResult {
	if err := run.MarkFailed(s.DB, ctx, serr.Type, serr.Message, serr.Snippet); err != nil {
		config.LogError(s.Logger, "stocksync", "failRun", "mark failed", run.ID, err)
	}
	if err := conn.MarkConnectionStatus(s.DB, ctx, models.ConnectionStatusFailed); err != nil {
		config.LogError(s.Logger, "stocksync", "failRun", "update connection status", conn.SiteName, err)
	}
	s.Logger.WithFields(logrus.Fields{
		"module":     "stocksync",
		"site_name":  conn.SiteName,
		"error_type": serr.Type,
		"run_id":     run.ID,
	}).Error(serr.Message)

	return SyncResult{
		Success:    false,
		Type:       serr.Type,
		Error:      serr.Message,
		Suggestion: serr.Suggestion,
		SiteName:   conn.SiteName,
		RunId:      run.ID,
	}
}

// SyncAllSites runs the single-site sync once per active connection,
// sequentially. One site failing never aborts the batch.
func (s *Service) SyncAllSites(ctx context.Context) SyncSummary {
	ctx, span := otel.Tracer("stocksync").Start(ctx, "SyncAllSites")
	defer span.End()

	conns, err := models.ListActiveSiteConnections(s.DB, ctx)
	if err != nil {
		config.LogError(s.Logger, "stocksync", "SyncAllSites", "list active connections", nil, err)
		return SyncSummary{Success: false, Error: err.Error()}
	}
	if len(conns) == 0 {
		return SyncSummary{Success: false, Error: "no active site connections configured"}
	}

	summary := SyncSummary{TotalSites: len(conns)}
	for i := range conns {
		result := s.SyncFromSite(ctx, &conns[i], models.SyncTriggeredBatch, StockFilters{})
		if result.SiteName == "" {
			result.SiteName = conns[i].SiteName
		}
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}
	summary.Success = summary.Failed == 0
	return summary
}

// TestConnection probes the remote "who am I" endpoint and flips the
// connection status flag. No stock data moves on a probe.
func (s *Service) TestConnection(ctx context.Context, conn *models.SiteConnection) TestResult {
	body, fetchErr := newRemoteClient(conn).get(ctx, ProviderMethodWhoami, nil)
	if fetchErr != nil {
		if err := conn.MarkConnectionStatus(s.DB, ctx, models.ConnectionStatusFailed); err != nil {
			config.LogError(s.Logger, "stocksync", "TestConnection", "update connection status", conn.SiteName, err)
		}
		return TestResult{
			Success:    false,
			Error:      fetchErr.Message,
			Type:       fetchErr.Type,
			Suggestion: fetchErr.Suggestion,
		}
	}
	user, ok := whoamiUser(body)
	if !ok {
		if err := conn.MarkConnectionStatus(s.DB, ctx, models.ConnectionStatusFailed); err != nil {
			config.LogError(s.Logger, "stocksync", "TestConnection", "update connection status", conn.SiteName, err)
		}
		return TestResult{
			Success: false,
			Error:   "Invalid response format",
			Type:    ErrTypeDecode,
		}
	}
	if err := conn.MarkConnectionStatus(s.DB, ctx, models.ConnectionStatusConnected); err != nil {
		config.LogError(s.Logger, "stocksync", "TestConnection", "update connection status", conn.SiteName, err)
	}
	return TestResult{
		Success: true,
		Message: "connection successful",
		User:    user,
	}
}

// whoamiUser pulls the authenticated identity out of a probe response,
// which is either {"message": "user"} or {"message": {"user": "..."}}.
// Any other body shape means the endpoint is not a stock provider.
func whoamiUser(body []byte) (string, bool) {
	var asString struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &asString); err == nil && asString.Message != "" {
		return asString.Message, true
	}
	var asObject struct {
		Message struct {
			User string `json:"user"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil && asObject.Message.User != "" {
		return asObject.Message.User, true
	}
	return "", false
}
