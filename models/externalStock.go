package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalStockEntry is the locally mirrored copy of one remote stock row,
// tagged with the connection that owns it. A source's rows are replaced
// wholesale on every successful sync; they are never upserted in place.
// (source_site, item_code, warehouse) is unique, so a remote payload that
// repeats a row loses the duplicate to the per-row skip.
type ExternalStockEntry struct {
	ID           int             `gorm:"primary_key" json:"id"`
	SourceSite   string          `gorm:"uniqueIndex:idx_external_stock,priority:1;size:140;not null" json:"source_site"`
	ItemCode     string          `gorm:"uniqueIndex:idx_external_stock,priority:2;size:140;not null" json:"item_code"`
	Warehouse    string          `gorm:"uniqueIndex:idx_external_stock,priority:3;size:140" json:"warehouse"`
	ItemName     string          `gorm:"size:255" json:"item_name"`
	ActualQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_qty"`
	ReservedQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_qty"`
	OrderedQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"ordered_qty"`
	AvailableQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"available_qty"`
	UOM          string          `gorm:"size:60" json:"uom"`
	Description  string          `gorm:"type:text" json:"description"`
	LastSyncAt   time.Time       `gorm:"index;not null" json:"last_sync"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
