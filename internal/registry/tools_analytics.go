package registry

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/export"
	"github.com/vinodismyname/salespulse/pkg/mcperr"
	"github.com/vinodismyname/salespulse/pkg/validation"
)

// MonthlySalesInput selects a dataset and the gap policy.
type MonthlySalesInput struct {
	DatasetID string `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
	FillGaps  *bool  `json:"fill_gaps,omitempty" jsonschema_description:"Emit zero-sales months between the first and last observed month"`
}

// RankSalesInput selects a grouping dimension and result size.
type RankSalesInput struct {
	DatasetID string `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
	Dimension string `json:"dimension" jsonschema_description:"product, region or any column name" validate:"required,dimension"`
	TopN      int    `json:"top_n,omitempty" jsonschema_description:"Maximum entries returned (default 10)" validate:"omitempty,min=1,max=1000"`
}

// ABCAnalysisInput selects a dimension and optional tier cut-offs.
type ABCAnalysisInput struct {
	DatasetID  string  `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
	Dimension  string  `json:"dimension" jsonschema_description:"product, region or any column name" validate:"required,dimension"`
	ThresholdA float64 `json:"threshold_a,omitempty" jsonschema_description:"Upper cumulative % for tier A (default 80)" validate:"omitempty,gt=0,lt=100"`
	ThresholdB float64 `json:"threshold_b,omitempty" jsonschema_description:"Upper cumulative % for tier B (default 95)" validate:"omitempty,gt=0,lt=100"`
}

// DashboardInput selects a dataset and the ranking size.
type DashboardInput struct {
	DatasetID string `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
	TopN      int    `json:"top_n,omitempty" jsonschema_description:"Maximum ranking entries returned (default 10)" validate:"omitempty,min=1,max=1000"`
}

// ExportDashboardInput names the workbook to write.
type ExportDashboardInput struct {
	DatasetID string `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
	Path      string `json:"path" jsonschema_description:"Output .xlsx path under an allowed directory" validate:"required"`
}

// KPIOutput is the sales_kpis result.
type KPIOutput struct {
	DatasetID string                    `json:"dataset_id"`
	Metrics   analytics.Metrics         `json:"metrics"`
	Report    analytics.NormalizeReport `json:"report"`
	Issues    analytics.Issues          `json:"issues,omitempty"`
}

// MonthlyOutput is the monthly_sales result.
type MonthlyOutput struct {
	DatasetID string                   `json:"dataset_id"`
	FillGaps  bool                     `json:"fill_gaps"`
	Points    []analytics.MonthlyPoint `json:"points"`
	Issues    analytics.Issues         `json:"issues,omitempty"`
}

// RankOutput is the rank_sales result.
type RankOutput struct {
	DatasetID   string                  `json:"dataset_id"`
	Dimension   string                  `json:"dimension"`
	TotalGroups int                     `json:"total_groups"`
	Entries     []analytics.RankedEntry `json:"entries"`
}

// ABCOutput is the abc_analysis result.
type ABCOutput struct {
	DatasetID  string                 `json:"dataset_id"`
	Dimension  string                 `json:"dimension"`
	Thresholds analytics.Thresholds   `json:"thresholds"`
	Counts     map[analytics.Tier]int `json:"counts"`
	Entries    []analytics.ABCEntry   `json:"entries"`
}

// ExportOutput is the export_dashboard result.
type ExportOutput struct {
	Path   string   `json:"path" jsonschema_description:"Canonical path written"`
	Sheets []string `json:"sheets"`
}

// RegisterAnalyticsTools adds the KPI, monthly, ranking, ABC, dashboard and
// export tools.
func RegisterAnalyticsTools(s *server.MCPServer, reg *Registry, deps Deps) {
	kpis := mcp.NewTool(
		"sales_kpis",
		mcp.WithDescription("Headline KPIs: total sales, average order value, distinct customers and repeat customers (more than one order). A KPI whose column is missing, or any mean over zero rows, is null (no data) and explained in issues."),
		mcp.WithInputSchema[DatasetInput](),
	)
	reg.add(s, kpis, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		db, errRes := deps.load(ctx, in.DatasetID, deps.Options)
		if errRes != nil {
			return errRes, nil
		}
		out := KPIOutput{
			DatasetID: in.DatasetID,
			Metrics:   db.Metrics,
			Report:    db.Report,
			Issues:    db.Issues.For(analytics.FeatureKPIs, analytics.FeatureNormalize),
		}
		m := db.Metrics
		lines := []string{
			fmt.Sprintf("total_sales=%s avg_order_value=%s customers=%s repeat=%s", m.TotalSales, m.AvgOrderValue, m.TotalCustomers, m.RepeatCustomers),
			fmt.Sprintf("rows analyzed=%d dropped=%d", db.Report.OutputRows, db.Report.DroppedRows),
		}
		return reg.result(out, append(lines, issueLines(out.Issues)...)), nil
	}))

	monthly := mcp.NewTool(
		"monthly_sales",
		mcp.WithDescription("Total sales and order count per calendar month, ascending. Months without orders are omitted unless fill_gaps is true."),
		mcp.WithInputSchema[MonthlySalesInput](),
	)
	reg.add(s, monthly, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in MonthlySalesInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		opts := deps.Options
		if in.FillGaps != nil {
			opts.FillGaps = *in.FillGaps
		}
		db, errRes := deps.load(ctx, in.DatasetID, opts)
		if errRes != nil {
			return errRes, nil
		}
		out := MonthlyOutput{DatasetID: in.DatasetID, FillGaps: opts.FillGaps, Points: db.Monthly, Issues: db.Issues.For(analytics.FeatureMonthly)}
		if out.Points == nil {
			out.Points = []analytics.MonthlyPoint{}
		}
		lines := []string{fmt.Sprintf("months=%d fill_gaps=%v", len(out.Points), out.FillGaps)}
		for _, p := range out.Points {
			lines = append(lines, fmt.Sprintf("%s total=%s orders=%d", p.Month, p.Total, p.Orders))
		}
		return reg.result(out, append(lines, issueLines(out.Issues)...)), nil
	}))

	rank := mcp.NewTool(
		"rank_sales",
		mcp.WithDescription("Rank groups of a dimension (product, region or another column) by total sales, descending; ties are ordered by key. Returns the top_n entries and the total number of groups."),
		mcp.WithInputSchema[RankSalesInput](),
	)
	reg.add(s, rank, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in RankSalesInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		dim := analytics.ResolveDimension(in.Dimension)
		ranked, errRes := deps.ranking(ctx, in.DatasetID, dim)
		if errRes != nil {
			return errRes, nil
		}
		top := in.TopN
		if top <= 0 {
			top = deps.Limits.TopN
		}
		out := RankOutput{DatasetID: in.DatasetID, Dimension: dim, TotalGroups: len(ranked), Entries: analytics.Top(ranked, top)}
		lines := []string{fmt.Sprintf("%s: %d groups, showing %d", dim, out.TotalGroups, len(out.Entries))}
		for i, e := range out.Entries {
			lines = append(lines, fmt.Sprintf("%d. %s total=%s orders=%d", i+1, e.Key, e.Total, e.Orders))
		}
		return reg.result(out, lines), nil
	}))

	abc := mcp.NewTool(
		"abc_analysis",
		mcp.WithDescription("Pareto (ABC) classification of a dimension by cumulative share of total sales: A up to threshold_a (80%), B up to threshold_b (95%), C for the rest. Fails with NO_DATA when total sales are zero."),
		mcp.WithInputSchema[ABCAnalysisInput](),
	)
	reg.add(s, abc, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ABCAnalysisInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		t := deps.Options.Thresholds
		if t == (analytics.Thresholds{}) {
			t = analytics.DefaultThresholds()
		}
		if in.ThresholdA > 0 {
			t.A = in.ThresholdA
		}
		if in.ThresholdB > 0 {
			t.B = in.ThresholdB
		}
		if err := t.Validate(); err != nil {
			return mcperr.New(mcperr.Validation, err.Error()), nil
		}
		dim := analytics.ResolveDimension(in.Dimension)
		ranked, errRes := deps.ranking(ctx, in.DatasetID, dim)
		if errRes != nil {
			return errRes, nil
		}
		entries, err := analytics.ClassifyABC(ranked, t)
		if err != nil {
			return mcperr.FromError(analytics.WithFeature(err, analytics.ABCFeature(dim)), mcperr.AnalysisFailed), nil
		}
		out := ABCOutput{DatasetID: in.DatasetID, Dimension: dim, Thresholds: t, Counts: analytics.TierCounts(entries), Entries: entries}
		lines := []string{fmt.Sprintf("%s: A=%d B=%d C=%d", dim, out.Counts[analytics.TierA], out.Counts[analytics.TierB], out.Counts[analytics.TierC])}
		for _, e := range entries {
			lines = append(lines, fmt.Sprintf("%s %s cum=%.2f%%", e.Tier, e.Key, e.CumulativePct))
		}
		return reg.result(out, lines), nil
	}))

	dash := mcp.NewTool(
		"sales_dashboard",
		mcp.WithDescription("Every view at once: KPIs, monthly series, product and region rankings (top_n), their ABC tiers, product concentration (HHI) and per-feature issues. Features whose columns are unavailable are skipped, not fatal."),
		mcp.WithInputSchema[DashboardInput](),
	)
	reg.add(s, dash, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DashboardInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		db, errRes := deps.load(ctx, in.DatasetID, deps.Options)
		if errRes != nil {
			return errRes, nil
		}
		top := in.TopN
		if top <= 0 {
			top = deps.Limits.TopN
		}
		out := db.WithTop(top)
		m := out.Metrics
		lines := []string{
			fmt.Sprintf("total_sales=%s avg_order_value=%s customers=%s repeat=%s months=%d", m.TotalSales, m.AvgOrderValue, m.TotalCustomers, m.RepeatCustomers, len(out.Monthly)),
		}
		if len(out.ByProduct) > 0 {
			lines = append(lines, fmt.Sprintf("top product: %s (%s)", out.ByProduct[0].Key, out.ByProduct[0].Total))
		}
		if len(out.ByRegion) > 0 {
			lines = append(lines, fmt.Sprintf("top region: %s (%s)", out.ByRegion[0].Key, out.ByRegion[0].Total))
		}
		if c := out.ProductConcentration; c != nil {
			lines = append(lines, fmt.Sprintf("product concentration: %s (HHI %.3f)", c.Band, c.HHI))
		}
		return reg.result(out, append(lines, issueLines(out.Issues)...)), nil
	}))

	exp := mcp.NewTool(
		"export_dashboard",
		mcp.WithDescription("Write the full dashboard to an .xlsx workbook with sheets KPIs, Monthly, Products, Regions, ABC_Products, ABC_Regions and Issues. The path must be inside an allowed directory."),
		mcp.WithInputSchema[ExportDashboardInput](),
		mcp.WithOutputSchema[ExportOutput](),
	)
	reg.add(s, exp, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ExportDashboardInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if deps.Exports == nil {
			return mcperr.New(mcperr.PermissionDenied, "exports are not configured"), nil
		}
		path, err := deps.Exports.ValidateWritePath(in.Path)
		if err != nil {
			return mcperr.FromError(err, mcperr.ExportFailed), nil
		}
		db, errRes := deps.load(ctx, in.DatasetID, deps.Options)
		if errRes != nil {
			return errRes, nil
		}
		if err := export.WriteDashboard(db, path); err != nil {
			return mcperr.New(mcperr.ExportFailed, err.Error()), nil
		}
		out := ExportOutput{Path: path, Sheets: export.Sheets}
		return reg.result(out, []string{"wrote " + path}), nil
	}))
}

// load resolves a dataset and its dashboard under opts.
func (d Deps) load(ctx context.Context, id string, opts analytics.Options) (*analytics.Dashboard, *mcp.CallToolResult) {
	ds, errRes := d.dataset(id)
	if errRes != nil {
		return nil, errRes
	}
	return d.dashboard(ctx, ds, opts)
}

// ranking returns the full ranking for dim. Product and region come from the
// cached dashboard; other columns are ranked on demand.
func (d Deps) ranking(ctx context.Context, id, dim string) ([]analytics.RankedEntry, *mcp.CallToolResult) {
	db, errRes := d.load(ctx, id, d.Options)
	if errRes != nil {
		return nil, errRes
	}
	var (
		ranked  []analytics.RankedEntry
		feature = analytics.RankFeature(dim)
		err     error
	)
	switch dim {
	case analytics.ColProductName:
		ranked = db.ByProduct
	case analytics.ColRegion:
		ranked = db.ByRegion
	default:
		ranked, err = analytics.Rank(db.Normalized, dim)
	}
	for _, is := range db.Issues.For(feature) {
		err = is.Err
	}
	if err != nil {
		return nil, mcperr.FromError(err, mcperr.AnalysisFailed)
	}
	if ranked == nil {
		ranked = []analytics.RankedEntry{}
	}
	return ranked, nil
}

func issueLines(is analytics.Issues) []string {
	out := make([]string, 0, len(is))
	for _, i := range is {
		out = append(out, fmt.Sprintf("issue %s: %s", i.Feature, i.Message))
	}
	return out
}
