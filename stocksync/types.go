package stocksync

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Provider endpoint method names, appended to a connection's normalized
// base URL as {base_url}api/method/{name}.
const (
	ProviderMethodStock  = "stocksync.api.get_stock_for_external"
	ProviderMethodWhoami = "stocksync.api.whoami"
)

// Error classification tags. These travel in the `type` field of failure
// results and in the run log's error_type column.
const (
	ErrTypeTimeout    = "timeout"
	ErrTypeSSL        = "ssl_error"
	ErrTypeConnection = "connection_error"
	ErrTypeRequest    = "request_error"
	ErrTypeHTTP       = "http_error"
	ErrTypeDecode     = "decode_error"
	ErrTypeConfig     = "config_error"
	ErrTypeLocked     = "lock_error"
	ErrTypeInternal   = "internal_error"
)

// StockRow is the wire shape exchanged between sites. Quantities default to
// zero and text to empty when the source omits them. AvailableQty is always
// computed at the source; it is never re-derived here.
type StockRow struct {
	ItemCode     string          `json:"item_code" gorm:"column:item_code"`
	ItemName     string          `json:"item_name" gorm:"column:item_name"`
	Warehouse    string          `json:"warehouse" gorm:"column:warehouse"`
	ActualQty    decimal.Decimal `json:"actual_qty" gorm:"column:actual_qty"`
	ReservedQty  decimal.Decimal `json:"reserved_qty" gorm:"column:reserved_qty"`
	OrderedQty   decimal.Decimal `json:"ordered_qty" gorm:"column:ordered_qty"`
	AvailableQty decimal.Decimal `json:"available_qty" gorm:"column:available_qty"`
	UOM          string          `json:"uom,omitempty" gorm:"column:uom"`
	Description  string          `json:"description,omitempty" gorm:"column:description"`
}

// StockFilters are the optional exact-match filters accepted by the
// provider endpoint and forwarded on outbound fetches.
type StockFilters struct {
	Warehouse string
	ItemCode  string
}

func (f StockFilters) queryValues() url.Values {
	if f.Warehouse == "" && f.ItemCode == "" {
		return nil
	}
	params := url.Values{}
	if f.Warehouse != "" {
		params.Set("warehouse", f.Warehouse)
	}
	if f.ItemCode != "" {
		params.Set("item_code", f.ItemCode)
	}
	return params
}

// SyncError is a classified failure from the fetch/normalize pipeline.
// Snippet carries a bounded excerpt of the raw body for diagnostics.
type SyncError struct {
	Type       string
	Message    string
	Suggestion string
	Snippet    string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// SyncResult is what a single-site sync returns to its caller. Failures are
// results, never panics.
type SyncResult struct {
	Success       bool   `json:"success"`
	Type          string `json:"type,omitempty"`
	Error         string `json:"error,omitempty"`
	Suggestion    string `json:"suggestion,omitempty"`
	Message       string `json:"message,omitempty"`
	SiteName      string `json:"site_name,omitempty"`
	ItemsReceived int    `json:"items_received"`
	ItemsInserted int    `json:"items_inserted"`
	RunId         int    `json:"run_id,omitempty"`
}

func failedResult(errType string, message string) SyncResult {
	return SyncResult{Success: false, Type: errType, Error: message}
}

// SyncSummary aggregates a batch run over every active connection.
type SyncSummary struct {
	Success    bool         `json:"success"`
	TotalSites int          `json:"total_sites"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []SyncResult `json:"results"`
	Error      string       `json:"error,omitempty"`
}

// TestResult is the outcome of a connection probe. No data is merged from
// a probe; only the connection status flag moves.
type TestResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	User       string `json:"user,omitempty"`
	Error      string `json:"error,omitempty"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
