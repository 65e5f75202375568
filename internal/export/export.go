// Package export writes a sales dashboard to an Excel workbook.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order.
const (
	SheetKPIs        = "KPIs"
	SheetMonthly     = "Monthly"
	SheetProducts    = "Products"
	SheetRegions     = "Regions"
	SheetABCProducts = "ABC_Products"
	SheetABCRegions  = "ABC_Regions"
	SheetIssues      = "Issues"
)

// Sheets lists every sheet WriteDashboard creates.
var Sheets = []string{SheetKPIs, SheetMonthly, SheetProducts, SheetRegions, SheetABCProducts, SheetABCRegions, SheetIssues}

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

// WriteDashboard saves d as an .xlsx workbook at path, one sheet per view.
// Amounts are written as numbers; unavailable KPIs as the text "no data".
func WriteDashboard(d *analytics.Dashboard, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: style: %w", err)
	}

	for i, s := range sheets(d) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", s.name, err)
		}
		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return fmt.Errorf("export: %s header: %w", s.name, err)
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return fmt.Errorf("export: %s header style: %w", s.name, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("export: %s row %d: %w", s.name, r+2, err)
			}
		}
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func sheets(d *analytics.Dashboard) []sheet {
	m, rep := d.Metrics, d.Report
	kpis := sheet{
		name:   SheetKPIs,
		header: []any{"Metric", "Value"},
		rows: [][]any{
			{"Total Sales", scalarCell(m.TotalSales.Valid, func() any { return num(m.TotalSales.Value) })},
			{"Average Order Value", scalarCell(m.AvgOrderValue.Valid, func() any { return num(m.AvgOrderValue.Value) })},
			{"Total Customers", scalarCell(m.TotalCustomers.Valid, func() any { return m.TotalCustomers.Value })},
			{"Repeat Customers", scalarCell(m.RepeatCustomers.Valid, func() any { return m.RepeatCustomers.Value })},
			{"Input Rows", rep.InputRows},
			{"Rows Analyzed", rep.OutputRows},
			{"Rows Dropped", rep.DroppedRows},
			{"Returns Excluded", rep.ExcludedReturns},
		},
	}
	if c := d.ProductConcentration; c != nil {
		kpis.rows = append(kpis.rows,
			[]any{"Product HHI", c.HHI},
			[]any{"Product Concentration", c.Band},
		)
	}

	monthly := sheet{name: SheetMonthly, header: []any{"Month", "Total Sales", "Orders"}}
	for _, p := range d.Monthly {
		monthly.rows = append(monthly.rows, []any{p.Month.String(), num(p.Total), p.Orders})
	}

	issues := sheet{name: SheetIssues, header: []any{"Feature", "Issue"}}
	for _, is := range d.Issues {
		issues.rows = append(issues.rows, []any{is.Feature, is.Message})
	}

	return []sheet{
		kpis,
		monthly,
		rankingSheet(SheetProducts, "Product", d.ByProduct),
		rankingSheet(SheetRegions, "Region", d.ByRegion),
		abcSheet(SheetABCProducts, "Product", d.ABCProduct),
		abcSheet(SheetABCRegions, "Region", d.ABCRegion),
		issues,
	}
}

func rankingSheet(name, dim string, entries []analytics.RankedEntry) sheet {
	s := sheet{name: name, header: []any{"Rank", dim, "Total Sales", "Orders"}}
	for i, e := range entries {
		s.rows = append(s.rows, []any{i + 1, e.Key, num(e.Total), e.Orders})
	}
	return s
}

func abcSheet(name, dim string, entries []analytics.ABCEntry) sheet {
	s := sheet{name: name, header: []any{dim, "Total Sales", "Cumulative Sales", "Cumulative %", "Tier"}}
	for _, e := range entries {
		s.rows = append(s.rows, []any{e.Key, num(e.Total), num(e.Cumulative), e.CumulativePct, string(e.Tier)})
	}
	return s
}

func num(d decimal.Decimal) float64 { return d.InexactFloat64() }

func scalarCell(valid bool, value func() any) any {
	if !valid {
		return analytics.NoData
	}
	return value()
}
