package analytics

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// KPI feature names, used as Issue keys.
const (
	FeatureTotalSales      = "kpi.total_sales"
	FeatureAvgOrderValue   = "kpi.avg_order_value"
	FeatureTotalCustomers  = "kpi.total_customers"
	FeatureRepeatCustomers = "kpi.repeat_customers"
)

// Metrics are the headline KPIs of a normalized table.
type Metrics struct {
	TotalSales      Scalar[decimal.Decimal] `json:"total_sales"`
	AvgOrderValue   Scalar[decimal.Decimal] `json:"avg_order_value"`
	TotalCustomers  Scalar[int]             `json:"total_customers"`
	RepeatCustomers Scalar[int]             `json:"repeat_customers"`
}

// ComputeMetrics derives the KPIs. A KPI whose column is unavailable, or
// any KPI over an empty table, stays invalid and is reported as an Issue.
func ComputeMetrics(n *Normalized) (Metrics, Issues) {
	var m Metrics
	var issues Issues

	if err := n.require(FeatureTotalSales, ColTotalAmount); err != nil {
		issues = append(issues, newIssue(FeatureTotalSales, err))
		issues = append(issues, newIssue(FeatureAvgOrderValue, n.require(FeatureAvgOrderValue, ColTotalAmount)))
	} else if n.Len() == 0 {
		issues = append(issues,
			newIssue(FeatureTotalSales, noData(FeatureTotalSales)),
			newIssue(FeatureAvgOrderValue, &DivisionError{Feature: FeatureAvgOrderValue}),
		)
	} else {
		total := decimal.Zero
		for i := 0; i < n.Len(); i++ {
			total = total.Add(n.amount(i))
		}
		m.TotalSales = Some(total)
		m.AvgOrderValue = Some(total.Div(decimal.NewFromInt(int64(n.Len()))))
	}

	if err := n.require(FeatureTotalCustomers, ColCustomerID); err != nil {
		issues = append(issues, newIssue(FeatureTotalCustomers, err))
		issues = append(issues, newIssue(FeatureRepeatCustomers, n.require(FeatureRepeatCustomers, ColCustomerID)))
	} else if n.Len() == 0 {
		issues = append(issues,
			newIssue(FeatureTotalCustomers, noData(FeatureTotalCustomers)),
			newIssue(FeatureRepeatCustomers, noData(FeatureRepeatCustomers)),
		)
	} else {
		ids := make([]string, n.Len())
		for i := range ids {
			ids[i] = n.text(ColCustomerID, i)
		}
		counts := lo.CountValues(ids)
		m.TotalCustomers = Some(len(counts))
		m.RepeatCustomers = Some(len(lo.PickBy(counts, func(_ string, c int) bool { return c > 1 })))
	}
	return m, issues
}
