package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultRetentionWeeks = 4
	defaultMaxFileSize    = 100 * 1024 * 1024
	cleanupInterval       = 24 * time.Hour
)

var numberedFile = regexp.MustCompile(`^app-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingWriter writes to one file per ISO week (app-2026-W42.log) and
// starts a numbered file (app-2026-W42_01.log) when the size limit is hit.
// Files older than the retention period are removed once a day.
type RotatingWriter struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu   sync.Mutex
	file *os.File
	week string
	size int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRotatingWriter creates dir if needed and opens the current week's file.
func NewRotatingWriter(dir string, retentionWeeks int, maxFileSize int64) (*RotatingWriter, error) {
	if retentionWeeks <= 0 {
		retentionWeeks = defaultRetentionWeeks
	}
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &RotatingWriter{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	w.mu.Lock()
	err := w.rotate(weekKey(time.Now()), false)
	w.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go w.cleanupLoop(ctx)
	return w, nil
}

// weekKey returns the ISO week in YYYY-Www form.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	week := weekKey(time.Now())
	switch {
	case week != w.week:
		if err := w.rotate(week, false); err != nil {
			return 0, err
		}
	case w.size > 0 && w.size+int64(len(p)) > w.maxFileSize:
		if err := w.rotate(week, true); err != nil {
			return 0, err
		}
	}

	if w.file == nil {
		return 0, fmt.Errorf("no log file available")
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate switches to the file for week. Caller must hold mu.
func (w *RotatingWriter) rotate(week string, full bool) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	name := w.fileName(week, full)
	path := filepath.Join(w.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.file = file
	w.week = week
	w.size = 0
	if info, err := file.Stat(); err == nil {
		w.size = info.Size()
	}
	return nil
}

// fileName picks the base weekly file while it has room, otherwise the
// latest numbered file with room, otherwise the next number.
func (w *RotatingWriter) fileName(week string, full bool) string {
	base := fmt.Sprintf("app-%s.log", week)
	if !full {
		info, err := os.Stat(filepath.Join(w.dir, base))
		if err != nil || info.Size() < w.maxFileSize {
			return base
		}
	}

	matches, _ := filepath.Glob(filepath.Join(w.dir, fmt.Sprintf("app-%s_??.log", week)))
	highest := 0
	var highestSize int64
	for _, match := range matches {
		m := numberedFile.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num > highest {
			highest = num
			highestSize = 0
			if info, err := os.Stat(match); err == nil {
				highestSize = info.Size()
			}
		}
	}

	if highest > 0 && !full && highestSize < w.maxFileSize {
		return fmt.Sprintf("app-%s_%02d.log", week, highest)
	}
	return fmt.Sprintf("app-%s_%02d.log", week, highest+1)
}

func (w *RotatingWriter) cleanupLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.cleanup(time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
			}
		}
	}
}

// cleanup removes log files last modified before now minus the retention.
func (w *RotatingWriter) cleanup(now time.Time) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.Add(-w.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close stops the cleanup loop and closes the current file.
func (w *RotatingWriter) Close() error {
	w.cancel()
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
