// Package datasets caches loaded transaction tables under opaque handles
// so that MCP tools can run several analyses against one load.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/salespulse/config"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/sources"
)

// ErrNotFound indicates an unknown or expired dataset ID.
var ErrNotFound = errors.New("datasets: dataset not found")

// Gate bounds the number of cached datasets (backed by runtime.Controller).
type Gate interface {
	AcquireDataset(ctx context.Context) error
	ReleaseDataset()
}

// PathValidator returns the canonical path for an allowed file or an error.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// Dataset is an immutable raw table plus its provenance and idle deadline.
// Dashboards derived from it are memoized per analytics.Options.
type Dataset struct {
	ID        string
	Source    string
	Table     analytics.Table
	Truncated bool
	LoadedAt  time.Time

	mu        sync.Mutex
	expiresAt time.Time

	runMu      sync.Mutex
	dashboards map[analytics.Options]*analytics.Dashboard
}

// ExpiresAt returns the current idle deadline.
func (d *Dataset) ExpiresAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expiresAt
}

func (d *Dataset) touch(deadline time.Time) {
	d.mu.Lock()
	d.expiresAt = deadline
	d.mu.Unlock()
}

// Expired reports whether the dataset idled past its deadline.
func (d *Dataset) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt())
}

// Dashboard runs the analytics pipeline once per distinct opts and returns
// the cached result on later calls. Failed runs are not cached.
func (d *Dataset) Dashboard(ctx context.Context, opts analytics.Options) (*analytics.Dashboard, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if db, ok := d.dashboards[opts]; ok {
		return db, nil
	}
	db, err := analytics.Run(ctx, d.Table, opts)
	if err != nil {
		return nil, err
	}
	if d.dashboards == nil {
		d.dashboards = make(map[analytics.Options]*analytics.Dashboard)
	}
	d.dashboards[opts] = db
	return db, nil
}

// Manager owns the dataset cache, its TTL eviction loop and capacity gate.
type Manager struct {
	mu           sync.RWMutex
	datasets     map[string]*Dataset
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         Gate
	validator    PathValidator
	maxRows      int
	stopCh       chan struct{}
	stopOnce     sync.Once
	cleanupWG    sync.WaitGroup
}

// NewManager builds a Manager. ttl and cleanupEvery <= 0 fall back to config
// defaults; gate may be nil in tests; clock defaults to time.Now.
func NewManager(ttl, cleanupEvery time.Duration, gate Gate, clock func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultDatasetIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultDatasetCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		datasets:     make(map[string]*Dataset),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		maxRows:      config.DefaultMaxRows,
		stopCh:       make(chan struct{}),
	}
}

// WithPathValidator makes Open validate paths before reading them.
func (m *Manager) WithPathValidator(v PathValidator) *Manager {
	m.validator = v
	return m
}

// WithMaxRows caps rows read per load.
func (m *Manager) WithMaxRows(n int) *Manager {
	if n > 0 {
		m.maxRows = n
	}
	return m
}

// Start launches periodic eviction; it stops on Close or when ctx ends.
func (m *Manager) Start(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.EvictExpired(); n > 0 {
					logger.Debug().Int("evicted", n).Int("open", m.Count()).Msg("datasets evicted")
				}
			}
		}
	}()
}

// Close stops the eviction loop and drops every cached dataset.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.datasets {
		delete(m.datasets, id)
		m.release()
	}
	return nil
}

// Open validates path, loads it and caches the table.
func (m *Manager) Open(ctx context.Context, path, sheet string) (*Dataset, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	if m.validator != nil {
		canonical, err := m.validator.ValidateOpenPath(path)
		if err != nil {
			m.release()
			return nil, err
		}
		path = canonical
	}
	res, err := sources.LoadFile(ctx, path, sources.Options{Sheet: sheet, MaxRows: m.maxRows})
	if err != nil {
		m.release()
		return nil, err
	}
	return m.register(ctx, res), nil
}

// LoadTable reads a database table through db and caches it.
func (m *Manager) LoadTable(ctx context.Context, db sources.Querier, table string) (*Dataset, error) {
	if db == nil {
		return nil, errors.New("datasets: no database configured")
	}
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	res, err := sources.LoadTable(ctx, db, table, sources.Options{MaxRows: m.maxRows})
	if err != nil {
		m.release()
		return nil, err
	}
	return m.register(ctx, res), nil
}

// Adopt caches an already loaded table.
func (m *Manager) Adopt(ctx context.Context, source string, table analytics.Table, truncated bool) (*Dataset, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("datasets: table %q has no columns", source)
	}
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	return m.register(ctx, sources.Result{Table: table, Source: source, Truncated: truncated}), nil
}

func (m *Manager) register(ctx context.Context, res sources.Result) *Dataset {
	now := m.clock()
	d := &Dataset{
		ID:        uuid.NewString(),
		Source:    res.Source,
		Table:     res.Table,
		Truncated: res.Truncated,
		LoadedAt:  now,
		expiresAt: now.Add(m.ttl),
	}
	m.mu.Lock()
	m.datasets[d.ID] = d
	m.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("dataset_id", d.ID).
		Str("source", d.Source).
		Int("rows", d.Table.Len()).
		Bool("truncated", d.Truncated).
		Msg("dataset loaded")
	return d
}

// Get returns the dataset and refreshes its idle deadline.
func (m *Manager) Get(id string) (*Dataset, bool) {
	m.mu.RLock()
	d, ok := m.datasets[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	d.touch(m.clock().Add(m.ttl))
	return d, true
}

// CloseDataset removes a dataset and frees its slot.
func (m *Manager) CloseDataset(id string) error {
	m.mu.Lock()
	_, ok := m.datasets[id]
	delete(m.datasets, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.release()
	return nil
}

// EvictExpired drops datasets past their idle deadline and returns how many.
func (m *Manager) EvictExpired() int {
	now := m.clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, d := range m.datasets {
		if d.Expired(now) {
			delete(m.datasets, id)
			m.release()
			n++
		}
	}
	return n
}

// Count returns the number of cached datasets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.datasets)
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireDataset(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseDataset()
}
