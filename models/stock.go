package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item carries the display metadata joined into provider responses.
type Item struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ItemCode    string    `gorm:"size:140;not null;unique" json:"item_code"`
	ItemName    string    `gorm:"size:255;not null" json:"item_name"`
	UOM         string    `gorm:"size:60" json:"uom"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Bin is this site's own on-hand stock per (item, warehouse). It is what
// the provider endpoint exposes to partners.
type Bin struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ItemCode    string          `gorm:"index:idx_bin,priority:1;size:140;not null" json:"item_code"`
	Warehouse   string          `gorm:"index:idx_bin,priority:2;size:140;not null" json:"warehouse"`
	ActualQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_qty"`
	ReservedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_qty"`
	OrderedQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"ordered_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
