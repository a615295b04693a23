package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
)

// Scheduler removes stored uploads older than the retention window from the local
// blob directory
type Scheduler struct {
	blobDir  string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(blobDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		blobDir:  blobDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		now:      time.Now,
		logger:   logging.WithComponent("cleanup"),
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval
func (s *Scheduler) Start() {
	s.logger.Info().Str("dir", s.blobDir).Msg("Running initial blob cleanup")
	s.Sweep()

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("Cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info().Msg("Cleanup scheduler stopped")
	})
}

// Sweep deletes expired files and any dated directories left empty. It returns the
// number of files removed.
func (s *Scheduler) Sweep() int {
	now := s.now()

	var deletedCount int
	var deletedSize int64
	var dirs []string

	err := filepath.Walk(s.blobDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if path != s.blobDir {
				dirs = append(dirs, path)
			}
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}

		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Failed to delete expired blob")
			return nil
		}
		deletedCount++
		deletedSize += size
		s.logger.Debug().
			Str("file", filepath.Base(path)).
			Dur("age", age.Round(time.Hour)).
			Int64("size_kb", size/1024).
			Msg("Deleted expired blob")
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Error during cleanup")
	}

	// Deepest first so day, month and year directories collapse in one pass.
	for i := len(dirs) - 1; i >= 0; i-- {
		if entries, err := os.ReadDir(dirs[i]); err == nil && len(entries) == 0 {
			os.Remove(dirs[i])
		}
	}

	if deletedCount > 0 {
		s.logger.Info().
			Int("files", deletedCount).
			Float64("freed_mb", float64(deletedSize)/(1024*1024)).
			Msg("Cleanup complete")
	}
	return deletedCount
}
