// Package scheduler runs the periodic metrics digest. Every interval it
// gathers the shared registry, logs the busiest series, and warns when no
// request was recorded since the previous run.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/giygas/routemetrics/interfaces"
	"github.com/giygas/routemetrics/logging"
	"github.com/giygas/routemetrics/metrics"
	"github.com/go-co-op/gocron"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// topSeries is how many series a digest lists.
const topSeries = 5

// Digest is the outcome of one digest run.
type Digest struct {
	Namespace string
	Requests  uint64
	Delta     uint64 // requests since the previous run
	Reset     bool   // the bundle was swapped, counters started over
	Top       []metrics.SeriesTotal
}

// Scheduler handles the digest job using dependency injection
type Scheduler struct {
	source    interfaces.MetricsSource
	interval  time.Duration
	scheduler *gocron.Scheduler
	printer   *message.Printer

	mu            sync.Mutex
	lastRequests  uint64
	lastNamespace string
}

// NewScheduler creates a scheduler instance; interval 0 disables the digest
func NewScheduler(source interfaces.MetricsSource, interval time.Duration) *Scheduler {
	return &Scheduler{
		source:    source,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
		printer:   message.NewPrinter(language.English),
	}
}

// Start schedules the digest and starts the scheduler
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		logging.Info("Metrics digest disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		if _, err := s.RunDigest(); err != nil {
			logging.Error("Failed to run metrics digest", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule metrics digest: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Metrics digest scheduled", "interval", s.interval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunDigest gathers the registry once and logs the result
func (s *Scheduler) RunDigest() (Digest, error) {
	namespace, families, err := s.source.Snapshot()
	if err != nil {
		return Digest{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	summary := metrics.Summarize(families, namespace)

	s.mu.Lock()
	digest := Digest{Namespace: namespace, Requests: summary.Requests}
	if namespace != s.lastNamespace || summary.Requests < s.lastRequests {
		digest.Reset = s.lastNamespace != ""
		digest.Delta = summary.Requests
	} else {
		digest.Delta = summary.Requests - s.lastRequests
	}
	s.lastRequests = summary.Requests
	s.lastNamespace = namespace
	s.mu.Unlock()

	if len(summary.Series) > topSeries {
		digest.Top = summary.Series[:topSeries]
	} else {
		digest.Top = summary.Series
	}

	s.log(digest)
	return digest, nil
}

func (s *Scheduler) log(d Digest) {
	if d.Reset {
		logging.Info("Metrics bundle was replaced since the last digest", "namespace", d.Namespace)
	}
	if d.Delta == 0 {
		logging.Warn("No requests recorded since the last digest", "namespace", d.Namespace)
	}

	logging.Info("Metrics digest",
		"namespace", d.Namespace,
		"requests_total", s.printer.Sprintf("%d", d.Requests),
		"requests_since_last", s.printer.Sprintf("%d", d.Delta),
	)

	for _, st := range d.Top {
		mean := 0.0
		if st.Observations > 0 {
			mean = st.DurationSum / float64(st.Observations)
		}
		logging.Info("Metrics digest series",
			"endpoint", st.Labels.Endpoint,
			"method", st.Labels.Method,
			"status", st.Labels.Status,
			"requests", s.printer.Sprintf("%d", st.Requests),
			"mean_ms", s.printer.Sprintf("%.1f", mean*1000),
		)
	}
}
