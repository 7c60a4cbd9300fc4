package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs periodic housekeeping: it announces loans that have gone
// overdue and writes a backup file whenever the configured interval has
// elapsed.
type Scheduler struct {
	lm        *LibraryManager
	interval  time.Duration
	backupDir string
	log       *zap.Logger

	announced map[string]struct{}
}

// NewScheduler returns a scheduler ticking every interval. Automatic backups
// are skipped when backupDir is empty.
func NewScheduler(lm *LibraryManager, interval time.Duration, backupDir string) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		lm:        lm,
		interval:  interval,
		backupDir: backupDir,
		log:       lm.log.Named("scheduler"),
		announced: make(map[string]struct{}),
	}
}

// Run checks once immediately, then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check performs one round of housekeeping.
func (s *Scheduler) Check(ctx context.Context) {
	now := s.lm.now()
	for _, l := range s.lm.OverdueLoans() {
		if _, seen := s.announced[l.ID]; seen {
			continue
		}
		s.announced[l.ID] = struct{}{}
		days := int(now.Sub(l.DueDate).Hours() / 24)
		if days < 1 {
			days = 1
		}
		s.lm.notify("Overdue: %q with %s, %d day(s) late", l.BookTitle, l.StudentName, days)
		s.log.Info("loan overdue", zap.String("loan_id", l.ID), zap.Int("days_late", days))
	}

	if s.backupDir == "" || !s.lm.Settings().BackupDue(now) {
		return
	}
	path, err := s.writeBackup(ctx, now)
	if err != nil {
		s.log.Error("automatic backup failed", zap.Error(err))
		return
	}
	s.log.Info("automatic backup written", zap.String("path", path))
}

func (s *Scheduler) writeBackup(ctx context.Context, now time.Time) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(s.backupDir, BackupFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := s.lm.WriteBackup(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
