package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Source Site", "Item Code", "Item Name", "Warehouse",
	"Actual Qty", "Reserved Qty", "Ordered Qty", "Available Qty",
	"UOM", "Last Sync",
}

// BuildExternalStockWorkbook renders a report, summary row included, as an
// xlsx workbook. The caller owns streaming it and closing the file.
func BuildExternalStockWorkbook(report *ExternalStockReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "External Stock"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, header)
	}

	for i, row := range report.Rows {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+rowNo, row.SourceSite)
		f.SetCellValue(sheet, "B"+rowNo, row.ItemCode)
		f.SetCellValue(sheet, "C"+rowNo, row.ItemName)
		f.SetCellValue(sheet, "D"+rowNo, row.Warehouse)
		f.SetCellValue(sheet, "E"+rowNo, row.ActualQty.String())
		f.SetCellValue(sheet, "F"+rowNo, row.ReservedQty.String())
		f.SetCellValue(sheet, "G"+rowNo, row.OrderedQty.String())
		f.SetCellValue(sheet, "H"+rowNo, row.AvailableQty.String())
		f.SetCellValue(sheet, "I"+rowNo, row.UOM)
		f.SetCellValue(sheet, "J"+rowNo, row.LastSyncAt.Format("2006-01-02 15:04:05"))
	}

	summaryNo := fmt.Sprint(len(report.Rows) + 2)
	f.SetCellValue(sheet, "A"+summaryNo, fmt.Sprintf("Total (%d items, %d sites)", report.Summary.TotalItems, report.Summary.SourceSites))
	f.SetCellValue(sheet, "E"+summaryNo, report.Summary.TotalActualQty.String())
	f.SetCellValue(sheet, "F"+summaryNo, report.Summary.TotalReservedQty.String())
	f.SetCellValue(sheet, "G"+summaryNo, report.Summary.TotalOrderedQty.String())
	f.SetCellValue(sheet, "H"+summaryNo, report.Summary.TotalAvailableQty.String())

	return f, nil
}
