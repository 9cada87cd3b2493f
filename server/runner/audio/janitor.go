// Package audio provides a periodic janitor for synthesized audio files.
package audio

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultRetention is how long a synthesized file stays downloadable.
	DefaultRetention = 24 * time.Hour
	// DefaultCleanupInterval is the default interval between cleanup runs.
	DefaultCleanupInterval = time.Hour
)

// Extensions the janitor owns. Anything else in the directory is left alone.
var managedExtensions = []string{".mp3", ".part"}

// Config holds configuration for the janitor.
type Config struct {
	Dir             string
	Retention       time.Duration
	CleanupInterval time.Duration
}

// Janitor deletes synthesized audio older than the retention window.
type Janitor struct {
	config Config
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewJanitor creates a new janitor.
func NewJanitor(config Config) *Janitor {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}
	return &Janitor{config: config, now: time.Now}
}

// Start begins the periodic cleanup in a goroutine.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("audio janitor started",
		"dir", j.config.Dir,
		"retention", j.config.Retention,
		"interval", j.config.CleanupInterval)
}

// Stop stops the janitor and waits for an in-flight run to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("audio janitor stopped")
}

// IsRunning returns whether the janitor is currently running.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// RunOnce executes a single cleanup run and returns the number of deleted files.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	return j.cleanup(ctx)
}

func (j *Janitor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.config.CleanupInterval)
	defer ticker.Stop()

	j.logRun(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			j.logRun(ctx)
		}
	}
}

func (j *Janitor) logRun(ctx context.Context) {
	if deleted, err := j.cleanup(ctx); err != nil {
		slog.Error("audio cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("audio cleanup completed", "deleted", deleted)
	}
}

func (j *Janitor) cleanup(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "failed to read audio dir %s", j.config.Dir)
	}

	cutoff := j.now().Add(-j.config.Retention)
	deleted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if entry.IsDir() || !managed(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed concurrently.
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.config.Dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove expired audio", "path", path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func managed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, m := range managedExtensions {
		if ext == m {
			return true
		}
	}
	return false
}
