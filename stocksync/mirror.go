package stocksync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/models"
	"gorm.io/gorm"
)

// replaceMirrorEntries swaps every mirrored row for one source site with the
// freshly fetched set, inside a single transaction. A row that fails to
// insert is logged and skipped; the remaining rows still land. Returns the
// number of rows actually inserted.
func replaceMirrorEntries(db *gorm.DB, ctx context.Context, logger *logrus.Logger, sourceSite string, rows []StockRow) (int, error) {
	inserted := 0
	now := time.Now()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_site = ?", sourceSite).Delete(&models.ExternalStockEntry{}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			entry := models.ExternalStockEntry{
				SourceSite:   sourceSite,
				ItemCode:     row.ItemCode,
				ItemName:     row.ItemName,
				Warehouse:    row.Warehouse,
				ActualQty:    row.ActualQty,
				ReservedQty:  row.ReservedQty,
				OrderedQty:   row.OrderedQty,
				AvailableQty: row.AvailableQty,
				UOM:          row.UOM,
				Description:  row.Description,
				LastSyncAt:   now,
			}
			if err := tx.Create(&entry).Error; err != nil {
				config.LogError(logger, "stocksync", "replaceMirrorEntries", "insert mirror row", map[string]interface{}{
					"source_site": sourceSite,
					"item_code":   row.ItemCode,
					"warehouse":   row.Warehouse,
				}, err)
				continue
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
