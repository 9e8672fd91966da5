package stocksync

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/models"
	"github.com/warelink/stocksync_backend/models/reports"
	"github.com/warelink/stocksync_backend/utils"
	"gorm.io/gorm"
)

var validate = validator.New()

// GetStockForExternalHandler serves the provider endpoint partner sites
// pull from. The response always carries this site's identity and a
// timestamp so the caller can attribute what it mirrors.
func GetStockForExternalHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := StockFilters{
			Warehouse: c.Query("warehouse"),
			ItemCode:  c.Query("item_code"),
		}
		rows, err := FetchLocalStock(svc.DB, c.Request.Context(), filters)
		if err != nil {
			config.LogError(svc.Logger, "stocksync", "GetStockForExternalHandler", "fetch local stock", filters, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":     false,
				"error":       "could not read local stock",
				"status_code": http.StatusInternalServerError,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      rows,
			"site":      config.SiteName(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"count":     len(rows),
		})
	}
}

// WhoamiHandler answers connection probes with the credential identity the
// token auth middleware resolved.
func WhoamiHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		label, _ := utils.GetCredentialLabelFromContext(c.Request.Context())
		if label == "" {
			label, _ = utils.GetAPIKeyFromContext(c.Request.Context())
		}
		c.JSON(http.StatusOK, gin.H{
			"message": gin.H{"user": label, "site": config.SiteName()},
		})
	}
}

func LoginHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		user, err := models.AuthenticateUser(db, c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Username, "role": user.Role})
	}
}

func ListConnectionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		conns, err := models.ListSiteConnections(db, c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connections": conns})
	}
}

func CreateConnectionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSiteConnection
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		conn, err := models.CreateSiteConnection(db, c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, conn)
	}
}

func GetConnectionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, ok := connectionFromParam(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func UpdateConnectionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
			return
		}
		var input models.NewSiteConnection
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		conn, err := models.UpdateSiteConnection(db, c.Request.Context(), id, &input)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func DeleteConnectionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
			return
		}
		if err := models.DeleteSiteConnection(db, c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func TestConnectionHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, ok := connectionFromParam(c, svc.DB)
		if !ok {
			return
		}
		result := svc.TestConnection(c.Request.Context(), conn)
		status := http.StatusOK
		if !result.Success {
			status = http.StatusBadGateway
		}
		c.JSON(status, result)
	}
}

func SyncSiteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, ok := connectionFromParam(c, svc.DB)
		if !ok {
			return
		}
		username, _ := utils.GetUsernameFromContext(c.Request.Context())
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		svc.Logger.WithFields(logrus.Fields{
			"module":    "stocksync",
			"site_name": conn.SiteName,
			"username":  username,
			"user_id":   userId,
		}).Info("manual sync triggered")
		filters := StockFilters{
			Warehouse: c.Query("warehouse"),
			ItemCode:  c.Query("item_code"),
		}
		result := svc.SyncFromSite(c.Request.Context(), conn, models.SyncTriggeredManual, filters)
		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, result)
	}
}

func SyncAllHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, _ := utils.GetUsernameFromContext(c.Request.Context())
		svc.Logger.WithFields(logrus.Fields{
			"module":   "stocksync",
			"username": username,
		}).Info("batch sync triggered")
		summary := svc.SyncAllSites(c.Request.Context())
		c.JSON(http.StatusOK, summary)
	}
}

func ListSyncRunsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		runs, err := models.ListStockSyncRuns(db, c.Request.Context(), c.Query("site_name"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func GetSyncRunHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		run, err := models.GetStockSyncRun(db, c.Request.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func ExternalStockReportHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := reportFilterFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := reports.GetExternalStockReport(db, c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func ExportExternalStockReportHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := reportFilterFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := reports.GetExternalStockReport(db, c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		f, err := reports.BuildExternalStockWorkbook(report)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		filename := "external-stock-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename=`+url.PathEscape(filename))
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "stocksync", "ExportExternalStockReportHandler", "write workbook", filename, err)
		}
	}
}

func connectionFromParam(c *gin.Context, db *gorm.DB) (*models.SiteConnection, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return nil, false
	}
	conn, err := models.GetSiteConnection(db, c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		return nil, false
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return conn, true
}

func reportFilterFromQuery(c *gin.Context) (reports.ExternalStockReportFilter, error) {
	filter := reports.ExternalStockReportFilter{
		SourceSite:    c.Query("source_site"),
		ItemCode:      c.Query("item_code"),
		Warehouse:     c.Query("warehouse"),
		OnlyAvailable: c.Query("show_only_available") == "true",
	}
	if v := c.Query("last_sync_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errors.New("last_sync_from must be formatted YYYY-MM-DD")
		}
		filter.SyncedFrom = &t
	}
	if v := c.Query("last_sync_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errors.New("last_sync_to must be formatted YYYY-MM-DD")
		}
		filter.SyncedTo = &t
	}
	return filter, nil
}
