package stocksync

import (
	"context"

	"gorm.io/gorm"
)

// FetchLocalStock answers a partner's snapshot query from this site's bins.
// Only rows with positive on-hand quantity are ever exposed; available_qty
// is computed here at the source so mirrors never re-derive it.
func FetchLocalStock(db *gorm.DB, ctx context.Context, filters StockFilters) ([]StockRow, error) {
	q := db.WithContext(ctx).Table("bins").
		Select(`bins.item_code,
			COALESCE(items.item_name, '') AS item_name,
			bins.warehouse,
			bins.actual_qty,
			bins.reserved_qty,
			bins.ordered_qty,
			bins.actual_qty - bins.reserved_qty AS available_qty,
			COALESCE(items.uom, '') AS uom,
			COALESCE(items.description, '') AS description`).
		Joins("LEFT JOIN items ON items.item_code = bins.item_code").
		Where("bins.actual_qty > ?", 0)
	if filters.Warehouse != "" {
		q = q.Where("bins.warehouse = ?", filters.Warehouse)
	}
	if filters.ItemCode != "" {
		q = q.Where("bins.item_code = ?", filters.ItemCode)
	}

	rows := []StockRow{}
	if err := q.Order("bins.item_code, bins.warehouse").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
