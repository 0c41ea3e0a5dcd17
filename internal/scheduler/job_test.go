package scheduler

import (
	"context"
	"errors"
	"testing"
)

func TestJobRecordReadJobInfo(t *testing.T) {
	called := false
	record := NewJobRecord("123", "testcluster", "/spool/job.123", func(ctx context.Context, r *JobRecord) error {
		called = true
		r.Script = []byte("#!/bin/sh\necho hi\n")
		return nil
	}, nil)

	if err := record.ReadJobInfo(context.Background()); err != nil {
		t.Fatalf("ReadJobInfo: %v", err)
	}
	if !called {
		t.Fatal("expected read function to be invoked")
	}
	if string(record.Script) != "#!/bin/sh\necho hi\n" {
		t.Fatalf("unexpected script: %q", record.Script)
	}
}

func TestJobRecordReadJobInfoNoStrategy(t *testing.T) {
	record := NewJobRecord("123", "testcluster", "/spool/job.123", nil, nil)
	if err := record.ReadJobInfo(context.Background()); err == nil {
		t.Fatal("expected error for record with no read strategy")
	}
}

func TestJobRecordReadJobInfoPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	record := NewJobRecord("123", "testcluster", "/spool/job.123", func(ctx context.Context, r *JobRecord) error {
		return wantErr
	}, nil)

	if err := record.ReadJobInfo(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestJobRecordFiles(t *testing.T) {
	record := NewJobRecord("123", "testcluster", "/spool/job.123", nil, func(r *JobRecord) []File {
		return []File{{Name: "job.123_script", Contents: r.Script}}
	})
	record.Script = []byte("payload")

	files := record.Files()
	if len(files) != 1 || files[0].Name != "job.123_script" || string(files[0].Contents) != "payload" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestJobRecordFilesNilFn(t *testing.T) {
	record := NewJobRecord("123", "testcluster", "/spool/job.123", nil, nil)
	if files := record.Files(); files != nil {
		t.Fatalf("expected nil files, got %+v", files)
	}
}
