package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

// Period buckets archived files into subdirectories of the archive
// root by the time they're submitted.
type Period string

const (
	// PeriodNone writes directly into the archive root with no
	// subdirectory bucketing.
	PeriodNone Period = "none"
	// PeriodDaily buckets by YYYYMMDD.
	PeriodDaily Period = "daily"
	// PeriodMonthly buckets by YYYYMM.
	PeriodMonthly Period = "monthly"
	// PeriodYearly buckets by YYYY.
	PeriodYearly Period = "yearly"
)

// FileSink archives job records as plain files beneath an archive root,
// one file per entry in the record's Files(), optionally bucketed into
// a time-based subdirectory.
type FileSink struct {
	archivePath string
	period      Period
	now         func() time.Time
}

// NewFileSink builds a FileSink rooted at archivePath, creating it if
// it doesn't already exist.
func NewFileSink(archivePath string, period Period) (*FileSink, error) {
	if period == "" {
		period = PeriodNone
	}
	if err := os.MkdirAll(archivePath, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create archive root %s: %w", archivePath, err)
	}
	return &FileSink{archivePath: archivePath, period: period, now: time.Now}, nil
}

// Submit writes every file in record.Files() into the period-bucketed
// target directory, creating that directory on first use.
func (s *FileSink) Submit(_ context.Context, record *scheduler.JobRecord) error {
	target, err := s.targetPath()
	if err != nil {
		return err
	}
	for _, f := range record.Files() {
		path := filepath.Join(target, f.Name)
		if err := os.WriteFile(path, f.Contents, 0o644); err != nil {
			return fmt.Errorf("sink: write %s: %w", path, err)
		}
	}
	return nil
}

// Close is a no-op: FileSink holds no resources beyond the archive
// directory, which callers manage independently.
func (s *FileSink) Close() error { return nil }

// targetPath returns the directory files should land in for "now",
// creating any period subdirectory that doesn't yet exist.
func (s *FileSink) targetPath() (string, error) {
	sub := ""
	switch s.period {
	case PeriodDaily:
		sub = s.now().Format("20060102")
	case PeriodMonthly:
		sub = s.now().Format("200601")
	case PeriodYearly:
		sub = s.now().Format("2006")
	case PeriodNone:
		return s.archivePath, nil
	default:
		return "", fmt.Errorf("sink: unknown period %q", s.period)
	}

	target := filepath.Join(s.archivePath, sub)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("sink: create period directory %s: %w", target, err)
	}
	return target, nil
}
