package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// realTempDir resolves platform symlinks such as /var -> /private/var.
func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Order_Date,Total_Amount\n"), 0o644))
	return path
}

func TestNewManager(t *testing.T) {
	root := realTempDir(t)

	m, err := NewManager([]string{root, "  "}, nil)
	require.NoError(t, err)
	require.NoError(t, m.ValidateConfig())
	require.Equal(t, []string{root}, m.AllowedDirectories())

	empty, err := NewManager(nil, nil)
	require.NoError(t, err)
	require.Error(t, empty.ValidateConfig())

	_, err = NewManager([]string{root}, []string{"csv"})
	require.Error(t, err)

	_, err = NewManager([]string{touch(t, filepath.Join(root, "file.csv"))}, nil)
	require.Error(t, err)
}

func TestNewManagerFromEnv(t *testing.T) {
	a, b := realTempDir(t), realTempDir(t)
	t.Setenv("SALESPULSE_ALLOWED_DIRS", a+string(os.PathListSeparator)+b)

	m, err := NewManagerFromEnv()
	require.NoError(t, err)
	require.Equal(t, []string{a, b}, m.AllowedDirectories())
}

func TestValidateOpenPath(t *testing.T) {
	root := realTempDir(t)
	outside := realTempDir(t)
	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)

	nested := touch(t, filepath.Join(root, "q1", "sales.csv"))
	workbook := touch(t, filepath.Join(root, "Sales.XLSX"))
	escaped := touch(t, filepath.Join(outside, "escape.xlsx"))
	unsupported := touch(t, filepath.Join(root, "sales.json"))

	cases := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "nested csv", path: nested, want: nested},
		{name: "extension case-insensitive", path: workbook, want: workbook},
		{name: "relative traversal", path: filepath.Join(root, "q1", "..", "q1", "sales.csv"), want: nested},
		{name: "outside root", path: escaped, wantErr: ErrNotAllowed},
		{name: "unsupported extension", path: unsupported, wantErr: ErrUnsupportedExtension},
		{name: "missing file", path: filepath.Join(root, "nope.csv"), wantErr: ErrNotFound},
		{name: "blank", path: " ", wantErr: ErrNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.ValidateOpenPath(tc.path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, filepath.IsAbs(got))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidateOpenPath_SymlinkEscapeDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
	root := realTempDir(t)
	target := touch(t, filepath.Join(realTempDir(t), "target.xlsx"))
	link := filepath.Join(root, "link.xlsx")
	require.NoError(t, os.Symlink(target, link))

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	_, err = m.ValidateOpenPath(link)
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestValidateWritePath(t *testing.T) {
	root := realTempDir(t)
	outside := realTempDir(t)
	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "report-dir.xlsx"), 0o755))

	got, err := m.ValidateWritePath(filepath.Join(root, "report.xlsx"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "report.xlsx"), got)

	for path, want := range map[string]error{
		filepath.Join(outside, "report.xlsx"):        ErrNotAllowed,
		filepath.Join(root, "report.csv"):            ErrUnsupportedExtension,
		filepath.Join(root, "missing", "report.xlsx"): ErrNotFound,
		filepath.Join(root, "report-dir.xlsx"):       ErrNotAllowed,
	} {
		_, err := m.ValidateWritePath(path)
		require.ErrorIs(t, err, want, path)
	}
}
