package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// taPollIterations bounds the sibling-.TA existence check to roughly
// 100ms, far shorter than the default script/environment poll: a .TA
// file is either written alongside the .SC file already or doesn't
// exist for this job at all, so there's little point waiting long.
const taPollIterations = 10

// Torque implements Adapter for the alternate scheduler shape: jobs are
// plain "<stem>.SC" script files, optionally accompanied by a "<stem>.TA"
// array-task marker and one or more "<leading-token>-N.<rest>.JB" blob
// files (the leading token is the stem's text before its first '.'), or
// else a single "<stem>.JB" blob, directly under the spool base (or its
// "0".."9" subdirectories when subdirs is set).
type Torque struct {
	base    string
	cluster string
	subdirs bool
}

// NewTorque builds a Torque adapter. filterRegex has no effect on this
// scheduler shape; Torque's "environment" isn't key/value shaped the way
// Slurm's is, so there is nothing for a key filter to apply to.
func NewTorque(base, cluster string, subdirs bool) *Torque {
	return &Torque{base: base, cluster: cluster, subdirs: subdirs}
}

// WatchLocations returns base itself, or base/0 .. base/9 when subdirs
// is set.
func (t *Torque) WatchLocations() []string {
	if !t.subdirs {
		return []string{t.base}
	}
	locs := make([]string, 0, 10)
	for i := 0; i <= 9; i++ {
		locs = append(locs, filepath.Join(t.base, fmt.Sprintf("%d", i)))
	}
	return locs
}

// Qualifies accepts only file-creation events whose extension is ".SC".
func (t *Torque) Qualifies(event fsnotify.Event) ([]string, bool) {
	if !event.Has(fsnotify.Create) {
		return nil, false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return nil, false
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".SC") {
		return nil, false
	}
	return []string{event.Name}, true
}

// BuildRecord re-validates the path and extracts the job ID from the
// ".SC" file's stem.
func (t *Torque) BuildRecord(path string) (*JobRecord, bool) {
	jobID, ok := isTorqueJobPath(path)
	if !ok {
		return nil, false
	}
	adapter := t
	record := NewJobRecord(jobID, t.cluster, path, adapter.readJobInfo, adapter.files)
	return record, true
}

// isTorqueJobPath verifies that path is a regular file with a ".SC"
// extension and returns its stem as the job ID.
func isTorqueJobPath(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".SC") {
		return "", false
	}
	return strings.TrimSuffix(base, ext), true
}

// readJobInfo reads the triggering ".SC" file itself as the script (it
// is already fully visible — that's the event that fired), then looks
// for a sibling "<stem>.TA" array-task marker. If found, every
// "<leading-token>-*.JB" blob in the same directory is collected (zero matches
// tolerated); otherwise a single "<stem>.JB" is read, applying the
// standard race-window poll since the scheduler may still be writing it.
func (t *Torque) readJobInfo(ctx context.Context, r *JobRecord) error {
	script, err := os.ReadFile(r.EventPath)
	if err != nil {
		return fmt.Errorf("scheduler: read torque script %s: %w", r.EventPath, err)
	}
	r.Script = script

	dir := filepath.Dir(r.EventPath)
	stem := r.JobID

	files := []File{{Name: filepath.Base(r.EventPath), Contents: script}}

	taName := stem + ".TA"
	taContents, taErr := readWithRetry(dir, taName, taPollIterations)
	if taErr == nil {
		files = append(files, File{Name: taName, Contents: taContents})

		// Array-job JB files are named "<leading-token>-N.<rest>.JB",
		// e.g. stem "2720868.master.cluster" has blobs
		// "2720868-946.master.cluster.JB" — only the token before the
		// first '.' carries the array task index, so the glob has to
		// match on that leading token rather than the full stem.
		leading := strings.SplitN(stem, ".", 2)[0]
		pattern := filepath.Join(dir, leading+"-*.JB")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("scheduler: glob %s: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			contents, err := os.ReadFile(m)
			if err != nil {
				continue
			}
			files = append(files, File{Name: filepath.Base(m), Contents: contents})
		}
	} else {
		jbName := stem + ".JB"
		jbContents, err := readWithRetry(dir, jbName, 0)
		if err != nil {
			return err
		}
		files = append(files, File{Name: jbName, Contents: jbContents})
	}

	r.torqueFiles = files
	return nil
}

// files returns the script followed by whatever array-task/blob files
// readJobInfo collected, in the deterministic order they were gathered.
func (t *Torque) files(r *JobRecord) []File {
	return r.torqueFiles
}
