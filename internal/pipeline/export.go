package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"rfqingest/internal"
)

func ExportItemsToXLSX(items []internal.PriceRequestItem, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line", "description", "quantity", "unit", "estimated",
		"internal_code", "supplier_code", "reference", "brand", "model", "serial",
		"unit_price", "total_price", "currency", "delivery_date", "notes",
		"confidence", "needs_review", "source",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, it := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, derefInt(it.LineNumber))
		set(2, it.Description)
		set(3, it.Quantity)
		set(4, it.Unit)
		set(5, it.IsEstimated)
		set(6, derefString(it.InternalCode))
		set(7, derefString(it.SupplierCode))
		set(8, derefString(it.Reference))
		set(9, derefString(it.Brand))
		set(10, derefString(it.Model))
		set(11, derefString(it.SerialNumber))
		set(12, derefFloat(it.UnitPrice))
		set(13, derefFloat(it.TotalPrice))
		set(14, derefString(it.Currency))
		set(15, derefString(it.DeliveryDate))
		set(16, derefString(it.Notes))
		set(17, it.Confidence)
		set(18, it.NeedsManualReview)
		set(19, it.Source)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
