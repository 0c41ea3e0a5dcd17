package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

func recordWithFiles(id string, files []scheduler.File) *scheduler.JobRecord {
	r := scheduler.NewJobRecord(id, "cluster-a", "/spool/"+id, nil, func(r *scheduler.JobRecord) []scheduler.File {
		return files
	})
	return r
}

func TestFileSinkSubmitWritesFilesNoPeriod(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, PeriodNone)
	if err != nil {
		t.Fatal(err)
	}

	record := recordWithFiles("1", []scheduler.File{
		{Name: "job.1_script", Contents: []byte("echo hi")},
		{Name: "job.1_environment", Contents: []byte("FOO=bar")},
	})

	if err := s.Submit(context.Background(), record); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "job.1_script"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "echo hi" {
		t.Fatalf("unexpected script contents: %q", data)
	}
}

func TestFileSinkSubmitBucketsByDay(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, PeriodDaily)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	record := recordWithFiles("2", []scheduler.File{{Name: "job.2_script", Contents: []byte("x")}})
	if err := s.Submit(context.Background(), record); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	expected := filepath.Join(dir, "20260730", "job.2_script")
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected file at %s: %v", expected, err)
	}
}

func TestFileSinkSubmitBucketsByMonthAndYear(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	monthDir := t.TempDir()
	monthSink, err := NewFileSink(monthDir, PeriodMonthly)
	if err != nil {
		t.Fatal(err)
	}
	monthSink.now = func() time.Time { return fixed }
	if err := monthSink.Submit(context.Background(), recordWithFiles("3", []scheduler.File{{Name: "f", Contents: nil}})); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(monthDir, "202607", "f")); err != nil {
		t.Fatalf("expected monthly bucket: %v", err)
	}

	yearDir := t.TempDir()
	yearSink, err := NewFileSink(yearDir, PeriodYearly)
	if err != nil {
		t.Fatal(err)
	}
	yearSink.now = func() time.Time { return fixed }
	if err := yearSink.Submit(context.Background(), recordWithFiles("4", []scheduler.File{{Name: "f", Contents: nil}})); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(yearDir, "2026", "f")); err != nil {
		t.Fatalf("expected yearly bucket: %v", err)
	}
}

func TestNewFileSinkCreatesArchiveRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	if _, err := NewFileSink(dir, PeriodNone); err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected archive root to be created: %v", err)
	}
}
