package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/shipments"
)

// WriteCategoryStockCSV serialises category product counts.
func WriteCategoryStockCSV(w io.Writer, rows []categories.Stock) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Category", "Products"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Name, strconv.Itoa(row.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteShipmentStatsCSV emits monthly product quantities.
func WriteShipmentStatsCSV(w io.Writer, rows []shipments.MonthlyStat) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Month", "Product", "Quantity"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Month, row.Product, strconv.FormatInt(row.Count, 10)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
