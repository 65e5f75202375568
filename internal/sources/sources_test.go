package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = "\ufeffOrder ID,Customer ID,Product Name,Region,Order Date,Total Amount\n" +
	"O1,C1,Widget,East,2024-01-05,100\n" +
	"O2,C1,Widget,East,2024-02-10,50\n" +
	"O3,C2,Gadget,West,2024-01-20,300\n"

func TestReadDelimited_HeaderAndRows(t *testing.T) {
	res, err := ReadDelimited(context.Background(), strings.NewReader(salesCSV), ',', Options{})
	require.NoError(t, err)
	require.Equal(t, "Order ID", res.Table.Columns[0])
	require.Len(t, res.Table.Columns, 6)
	require.Len(t, res.Table.Rows, 3)
	require.Equal(t, "Gadget", res.Table.Rows[2][2])
	require.False(t, res.Truncated)
}

func TestReadDelimited_RaggedRowsPadded(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	res, err := ReadDelimited(context.Background(), strings.NewReader(in), ',', Options{})
	require.NoError(t, err)
	require.Equal(t, []any{"1", "2", nil}, res.Table.Rows[0])
	require.Equal(t, []any{"1", "2", "3"}, res.Table.Rows[1])
}

func TestReadDelimited_NALiteralsBecomeNil(t *testing.T) {
	in := "Customer ID,Region,Total Amount\n" +
		"C1,NA,N/A\n" +
		"C2,na,NULL\n" +
		"C3,,#N/A\n"
	res, err := ReadDelimited(context.Background(), strings.NewReader(in), ',', Options{})
	require.NoError(t, err)
	require.Equal(t, []any{"C1", nil, nil}, res.Table.Rows[0])
	require.Equal(t, []any{"C2", "na", nil}, res.Table.Rows[1], "matching is case-sensitive")
	require.Equal(t, []any{"C3", nil, nil}, res.Table.Rows[2])
}

func TestReadDelimited_MaxRowsTruncates(t *testing.T) {
	res, err := ReadDelimited(context.Background(), strings.NewReader(salesCSV), ',', Options{MaxRows: 2})
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 2)
	require.True(t, res.Truncated)
}

func TestReadDelimited_Empty(t *testing.T) {
	_, err := ReadDelimited(context.Background(), strings.NewReader(""), ',', Options{})
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestLoadFile_CSVAndTSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(salesCSV), 0o644))
	res, err := LoadFile(context.Background(), csvPath, Options{})
	require.NoError(t, err)
	require.Equal(t, csvPath, res.Source)
	require.Len(t, res.Table.Rows, 3)

	tsvPath := filepath.Join(dir, "sales.tsv")
	require.NoError(t, os.WriteFile(tsvPath, []byte(strings.ReplaceAll(salesCSV, ",", "\t")), 0o644))
	res, err = LoadFile(context.Background(), tsvPath, Options{})
	require.NoError(t, err)
	require.Len(t, res.Table.Columns, 6)
}

func TestLoadFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFile(context.Background(), "sales.json", Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func createSalesWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sh := "Orders"
	require.NoError(t, f.SetSheetName("Sheet1", sh))
	require.NoError(t, f.SetSheetRow(sh, "A2", &[]string{"Customer ID", "Product Name", "Region", "Order Date", "Total Amount"}))
	require.NoError(t, f.SetSheetRow(sh, "A3", &[]string{"C1", "Widget", "East", "2024-01-05", "100"}))
	require.NoError(t, f.SetSheetRow(sh, "A4", &[]string{"C2", "Gadget", "West", "2024-01-20", "300"}))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]string{"Note"}))

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestReadWorkbookFile_FirstSheetSkipsLeadingBlankRows(t *testing.T) {
	path := createSalesWorkbook(t)
	res, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Customer ID", "Product Name", "Region", "Order Date", "Total Amount"}, res.Table.Columns)
	require.Len(t, res.Table.Rows, 2)
	require.Equal(t, "300", res.Table.Rows[1][4])
}

func TestReadWorkbookFile_NamedSheet(t *testing.T) {
	path := createSalesWorkbook(t)
	res, err := ReadWorkbookFile(context.Background(), path, Options{Sheet: "Notes"})
	require.NoError(t, err)
	require.Equal(t, []string{"Note"}, res.Table.Columns)
	require.Empty(t, res.Table.Rows)

	_, err = ReadWorkbookFile(context.Background(), path, Options{Sheet: "Missing"})
	require.Error(t, err)
}

func TestSelectAllQuery(t *testing.T) {
	q, err := SelectAllQuery("orders")
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "orders" LIMIT $1`, q)

	q, err = SelectAllQuery("sales.orders")
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "sales"."orders" LIMIT $1`, q)

	for _, bad := range []string{"", "orders; DROP TABLE x", "a.b.c", `"quoted"`, "1orders"} {
		_, err := SelectAllQuery(bad)
		require.Error(t, err, bad)
	}
}
