package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warelink/stocksync_backend/models"
	"gorm.io/gorm"
)

// ExternalStockReportFilter narrows the mirrored-stock report. Site, item
// and warehouse match exactly; the sync range is inclusive on both ends.
type ExternalStockReportFilter struct {
	SourceSite    string
	ItemCode      string
	Warehouse     string
	SyncedFrom    *time.Time
	SyncedTo      *time.Time
	OnlyAvailable bool
}

// ExternalStockReportSummary is the aggregate row appended to the report.
type ExternalStockReportSummary struct {
	TotalItems        int             `json:"total_items"`
	SourceSites       int             `json:"source_sites"`
	TotalActualQty    decimal.Decimal `json:"total_actual_qty"`
	TotalReservedQty  decimal.Decimal `json:"total_reserved_qty"`
	TotalOrderedQty   decimal.Decimal `json:"total_ordered_qty"`
	TotalAvailableQty decimal.Decimal `json:"total_available_qty"`
}

type ExternalStockReport struct {
	Rows    []models.ExternalStockEntry `json:"rows"`
	Summary ExternalStockReportSummary  `json:"summary"`
}

// GetExternalStockReport reads the mirror with every filter applied as a
// bound parameter, then folds the summary over the result set.
func GetExternalStockReport(db *gorm.DB, ctx context.Context, filter ExternalStockReportFilter) (*ExternalStockReport, error) {
	q := db.WithContext(ctx).Model(&models.ExternalStockEntry{})
	if filter.SourceSite != "" {
		q = q.Where("source_site = ?", filter.SourceSite)
	}
	if filter.ItemCode != "" {
		q = q.Where("item_code = ?", filter.ItemCode)
	}
	if filter.Warehouse != "" {
		q = q.Where("warehouse = ?", filter.Warehouse)
	}
	if filter.SyncedFrom != nil {
		q = q.Where("last_sync_at >= ?", *filter.SyncedFrom)
	}
	if filter.SyncedTo != nil {
		// one day past the given date keeps the range inclusive
		q = q.Where("last_sync_at < ?", filter.SyncedTo.AddDate(0, 0, 1))
	}
	if filter.OnlyAvailable {
		q = q.Where("available_qty > ?", 0)
	}

	rows := []models.ExternalStockEntry{}
	if err := q.Order("source_site, item_code, warehouse").Find(&rows).Error; err != nil {
		return nil, err
	}

	summary := ExternalStockReportSummary{TotalItems: len(rows)}
	sites := map[string]struct{}{}
	for _, row := range rows {
		sites[row.SourceSite] = struct{}{}
		summary.TotalActualQty = summary.TotalActualQty.Add(row.ActualQty)
		summary.TotalReservedQty = summary.TotalReservedQty.Add(row.ReservedQty)
		summary.TotalOrderedQty = summary.TotalOrderedQty.Add(row.OrderedQty)
		summary.TotalAvailableQty = summary.TotalAvailableQty.Add(row.AvailableQty)
	}
	summary.SourceSites = len(sites)

	return &ExternalStockReport{Rows: rows, Summary: summary}, nil
}
