package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinodismyname/salespulse/config"
)

// Manager confines file access to an allow-list of directories.
// Roots are canonicalized once (absolute, symlinks resolved) so that a
// symlink inside a root cannot be used to reach files outside it.
type Manager struct {
	allowedDirs []string
	allowedExts map[string]struct{}
}

// ErrNotAllowed indicates the requested path is outside the allow-list roots.
var ErrNotAllowed = errors.New("security: path not allowed")

// ErrUnsupportedExtension indicates the requested file extension is not supported.
var ErrUnsupportedExtension = errors.New("security: unsupported file extension")

// ErrNotFound indicates the requested file does not exist or is not accessible.
var ErrNotFound = errors.New("security: file not found")

// DefaultExtensions are the dataset formats accepted when none are configured.
var DefaultExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm"}

// NewManager builds a Manager for allowDirs. Extensions are compared
// case-insensitively and must carry the leading dot.
func NewManager(allowDirs []string, allowedExtensions []string) (*Manager, error) {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultExtensions
	}

	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, e := range allowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("security: invalid extension: %q", e)
		}
		exts[e] = struct{}{}
	}

	canonical := make([]string, 0, len(allowDirs))
	for _, d := range allowDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		real, err := canonicalDir(d)
		if err != nil {
			return nil, err
		}
		canonical = append(canonical, real)
	}

	return &Manager{allowedDirs: canonical, allowedExts: exts}, nil
}

// NewManagerFromEnv reads SALESPULSE_ALLOWED_DIRS as an os.PathListSeparator
// separated list. An unset variable yields an empty (deny-all) allow-list.
func NewManagerFromEnv() (*Manager, error) {
	var dirs []string
	if list := os.Getenv(config.EnvAllowedDirs); list != "" {
		dirs = filepath.SplitList(list)
	}
	return NewManager(dirs, nil)
}

func canonicalDir(d string) (string, error) {
	abs, err := filepath.Abs(d)
	if err != nil {
		return "", fmt.Errorf("security: resolve abs for %q: %w", d, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("security: stat %q: %w", real, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("security: allow-list entry is not a directory: %q", real)
	}
	return filepath.Clean(real), nil
}

// AllowedDirectories returns the canonical allow-list roots.
func (m *Manager) AllowedDirectories() []string {
	out := make([]string, len(m.allowedDirs))
	copy(out, m.allowedDirs)
	return out
}

// ValidateConfig fails when no directory is allowed; file tools stay
// unusable until the operator configures one.
func (m *Manager) ValidateConfig() error {
	if len(m.allowedDirs) == 0 {
		return errors.New("security: no allowed directories configured")
	}
	return nil
}

// ValidateOpenPath checks that input names an existing regular file with an
// allowed extension inside an allowed root and returns its canonical path.
func (m *Manager) ValidateOpenPath(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrNotAllowed
	}
	if err := m.checkExt(input); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotAllowed
	}
	if !m.contains(real) {
		return "", ErrNotAllowed
	}
	return real, nil
}

// ValidateWritePath checks an output path for exports: the extension must
// be .xlsx and its parent directory must exist inside an allowed root. The
// file itself may not exist yet.
func (m *Manager) ValidateWritePath(output string) (string, error) {
	if strings.TrimSpace(output) == "" {
		return "", ErrNotAllowed
	}
	if strings.ToLower(filepath.Ext(output)) != ".xlsx" {
		return "", ErrUnsupportedExtension
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	target := filepath.Join(parent, filepath.Base(abs))
	if info, err := os.Lstat(target); err == nil && (info.IsDir() || info.Mode()&os.ModeSymlink != 0) {
		return "", ErrNotAllowed
	}
	if !m.contains(target) {
		return "", ErrNotAllowed
	}
	return target, nil
}

func (m *Manager) checkExt(p string) error {
	if _, ok := m.allowedExts[strings.ToLower(filepath.Ext(p))]; !ok {
		return ErrUnsupportedExtension
	}
	return nil
}

// contains reports whether real lies strictly below one of the roots.
func (m *Manager) contains(real string) bool {
	for _, root := range m.allowedDirs {
		rel, err := filepath.Rel(root, real)
		if err != nil || rel == "." || rel == "" {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
