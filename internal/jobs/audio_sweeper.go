// Package jobs holds scheduled maintenance tasks.
package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/metrics"
)

const DefaultSweepSchedule = "@hourly"

// AudioSweeper removes synthesized audio files older than the retention period.
type AudioSweeper struct {
	dir       string
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
	cron      *cron.Cron
}

func NewAudioSweeper(dir string, retention time.Duration, log *zap.Logger) (*AudioSweeper, error) {
	if dir == "" {
		return nil, errors.New("audio directory is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("audio retention must be positive, got %s", retention)
	}
	return &AudioSweeper{
		dir:       dir,
		retention: retention,
		now:       time.Now,
		logger:    logger.OrNop(log).With(zap.String("job", "audio_sweeper")),
		cron:      cron.New(),
	}, nil
}

// Start schedules Sweep. An empty schedule means DefaultSweepSchedule.
func (s *AudioSweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Warn("audio sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule audio sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("audio sweeper started", zap.String("schedule", schedule), zap.Duration("retention", s.retention))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *AudioSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes expired mp3 files and returns how many were removed.
func (s *AudioSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read audio directory: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.AudioFilesSwept.Add(float64(removed))
		s.logger.Info("removed expired audio", zap.Int("files", removed))
	}
	return removed, errors.Join(errs...)
}
