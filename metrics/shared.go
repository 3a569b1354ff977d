package metrics

import (
	"io"
	"sync"

	dto "github.com/prometheus/client_model/go"
)

// Shared is a handle onto a Metrics bundle that the middleware and the
// scrape handler hold at the same time. Readers take a shared lock; Swap
// replaces the bundle under an exclusive one.
type Shared struct {
	cell *sharedCell
}

type sharedCell struct {
	mu      sync.RWMutex
	metrics *Metrics
}

// NewShared wraps m.
func NewShared(m *Metrics) *Shared {
	return &Shared{cell: &sharedCell{metrics: m}}
}

// Read returns the current bundle. The lock is only held long enough to load
// the pointer; the vectors it hands out are safe for concurrent use.
func (s *Shared) Read() *Metrics {
	s.cell.mu.RLock()
	defer s.cell.mu.RUnlock()
	return s.cell.metrics
}

// View runs fn with a read view held, so a concurrent Swap waits for fn.
func (s *Shared) View(fn func(m *Metrics)) {
	s.cell.mu.RLock()
	defer s.cell.mu.RUnlock()
	fn(s.cell.metrics)
}

// Swap installs m and returns the bundle it replaced.
func (s *Shared) Swap(m *Metrics) *Metrics {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	old := s.cell.metrics
	s.cell.metrics = m
	return old
}

// Clone returns another handle onto the same bundle. A Swap through either
// handle is visible through both.
func (s *Shared) Clone() *Shared {
	return &Shared{cell: s.cell}
}

// Gather implements prometheus.Gatherer over the current bundle's registry.
func (s *Shared) Gather() ([]*dto.MetricFamily, error) {
	var (
		families []*dto.MetricFamily
		err      error
	)
	s.View(func(m *Metrics) {
		families, err = m.registry.Gather()
	})
	return families, err
}

// WriteText encodes the current bundle under a read view.
func (s *Shared) WriteText(w io.Writer) error {
	var err error
	s.View(func(m *Metrics) {
		err = m.WriteText(w)
	})
	return err
}

// Snapshot gathers the current bundle together with its namespace under one
// read view, so a concurrent Swap cannot pair one bundle's namespace with
// another's families.
func (s *Shared) Snapshot() (namespace string, families []*dto.MetricFamily, err error) {
	s.View(func(m *Metrics) {
		namespace = m.namespace
		families, err = m.registry.Gather()
	})
	return namespace, families, err
}
