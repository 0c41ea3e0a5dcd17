package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestIsTorqueJobPath(t *testing.T) {
	dir := t.TempDir()
	scPath := filepath.Join(dir, "1234.SC")
	if err := os.WriteFile(scPath, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	id, ok := isTorqueJobPath(scPath)
	if !ok || id != "1234" {
		t.Fatalf("got (%q, %v), want (1234, true)", id, ok)
	}

	otherPath := filepath.Join(dir, "1234.JB")
	if err := os.WriteFile(otherPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := isTorqueJobPath(otherPath); ok {
		t.Fatal("expected non-.SC file to be rejected")
	}
}

func TestTorqueQualifiesOnlyFileCreateSC(t *testing.T) {
	dir := t.TempDir()
	scPath := filepath.Join(dir, "1.SC")
	if err := os.WriteFile(scPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTorque(dir, "cluster-a", false)
	paths, ok := tr.Qualifies(fsnotify.Event{Name: scPath, Op: fsnotify.Create})
	if !ok || len(paths) != 1 {
		t.Fatalf("expected qualifying event, got (%v, %v)", paths, ok)
	}

	jbPath := filepath.Join(dir, "1.JB")
	if err := os.WriteFile(jbPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.Qualifies(fsnotify.Event{Name: jbPath, Op: fsnotify.Create}); ok {
		t.Fatal(".JB creation must not qualify")
	}
}

func TestTorqueReadJobInfoSingleJB(t *testing.T) {
	dir := t.TempDir()
	scPath := filepath.Join(dir, "42.SC")
	if err := os.WriteFile(scPath, []byte("#!/bin/sh\necho single\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "42.JB"), []byte("<job/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTorque(dir, "cluster-a", false)
	record, ok := tr.BuildRecord(scPath)
	if !ok {
		t.Fatal("expected BuildRecord to succeed")
	}
	if err := record.ReadJobInfo(context.Background()); err != nil {
		t.Fatalf("ReadJobInfo: %v", err)
	}

	files := record.Files()
	if len(files) != 2 {
		t.Fatalf("expected script + single .JB, got %d files: %+v", len(files), files)
	}
	if files[0].Name != "42.SC" || files[1].Name != "42.JB" {
		t.Fatalf("unexpected file names: %+v", files)
	}
}

func TestTorqueReadJobInfoArrayJob(t *testing.T) {
	dir := t.TempDir()
	scPath := filepath.Join(dir, "77.SC")
	if err := os.WriteFile(scPath, []byte("#!/bin/sh\necho array\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "77.TA"), []byte("1-3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "77-1.JB"), []byte("<job1/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "77-2.JB"), []byte("<job2/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTorque(dir, "cluster-a", false)
	record, ok := tr.BuildRecord(scPath)
	if !ok {
		t.Fatal("expected BuildRecord to succeed")
	}
	if err := record.ReadJobInfo(context.Background()); err != nil {
		t.Fatalf("ReadJobInfo: %v", err)
	}

	files := record.Files()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	want := []string{"77.SC", "77.TA", "77-1.JB", "77-2.JB"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestTorqueReadJobInfoArrayJobMultiComponentStem(t *testing.T) {
	dir := t.TempDir()
	scPath := filepath.Join(dir, "2.mymaster.mycluster.SC")
	if err := os.WriteFile(scPath, []byte("#!/bin/sh\necho array\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2.mymaster.mycluster.TA"), []byte("1-3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2-1.mymaster.mycluster.JB"), []byte("<job1/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2-2.mymaster.mycluster.JB"), []byte("<job2/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTorque(dir, "cluster-a", false)
	record, ok := tr.BuildRecord(scPath)
	if !ok {
		t.Fatal("expected BuildRecord to succeed")
	}
	if err := record.ReadJobInfo(context.Background()); err != nil {
		t.Fatalf("ReadJobInfo: %v", err)
	}

	files := record.Files()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	want := []string{
		"2.mymaster.mycluster.SC",
		"2.mymaster.mycluster.TA",
		"2-1.mymaster.mycluster.JB",
		"2-2.mymaster.mycluster.JB",
	}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestTorqueWatchLocationsSubdirs(t *testing.T) {
	tr := NewTorque("/spool/base", "c", true)
	locs := tr.WatchLocations()
	if len(locs) != 10 {
		t.Fatalf("expected 10 watch locations, got %d", len(locs))
	}

	flat := NewTorque("/spool/base", "c", false)
	locs = flat.WatchLocations()
	if len(locs) != 1 || locs[0] != "/spool/base" {
		t.Fatalf("expected single base location, got %v", locs)
	}
}
