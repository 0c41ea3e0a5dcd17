package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Slurm implements Adapter for the hash-spooled scheduler shape: per-job
// directories named "job.<id>" under ten "hash.0".."hash.9" shards of the
// spool base, each holding a "script" and an "environment" file.
type Slurm struct {
	base        string
	cluster     string
	filterRegex *regexp.Regexp
}

// NewSlurm builds a Slurm adapter. filterRegex, if non-empty, is compiled
// and later used to suppress matching environment keys.
func NewSlurm(base, cluster, filterRegex string) (*Slurm, error) {
	var re *regexp.Regexp
	if filterRegex != "" {
		compiled, err := regexp.Compile(filterRegex)
		if err != nil {
			return nil, fmt.Errorf("scheduler: compile filter regex: %w", err)
		}
		re = compiled
	}
	return &Slurm{base: base, cluster: cluster, filterRegex: re}, nil
}

// WatchLocations returns base/hash.0 .. base/hash.9.
func (s *Slurm) WatchLocations() []string {
	locs := make([]string, 0, 10)
	for hash := 0; hash <= 9; hash++ {
		locs = append(locs, filepath.Join(s.base, fmt.Sprintf("hash.%d", hash)))
	}
	return locs
}

// Qualifies accepts only directory-creation events whose basename starts
// with "job.". All other event kinds, including directory creations that
// don't match the naming convention, are ignored.
func (s *Slurm) Qualifies(event fsnotify.Event) ([]string, bool) {
	if !event.Has(fsnotify.Create) {
		return nil, false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	if !strings.HasPrefix(filepath.Base(event.Name), "job.") {
		return nil, false
	}
	return []string{event.Name}, true
}

// BuildRecord re-validates the path and extracts the job ID from the
// "job.<id>" directory name.
func (s *Slurm) BuildRecord(path string) (*JobRecord, bool) {
	jobID, ok := isSlurmJobPath(path)
	if !ok {
		return nil, false
	}
	adapter := s
	record := NewJobRecord(jobID, s.cluster, path, adapter.readJobInfo, adapter.files)
	return record, true
}

// isSlurmJobPath verifies that path points to a directory whose basename
// starts with "job." and returns the job ID, the portion of the basename
// after the last '.'.
func isSlurmJobPath(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "job.") {
		return "", false
	}
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return "", false
	}
	return base[idx+1:], true
}

// readJobInfo populates Script and Environment by reading the "script"
// and "environment" files beneath the job directory, applying the
// race-window poll described in the read protocol.
func (s *Slurm) readJobInfo(ctx context.Context, r *JobRecord) error {
	script, err := readWithRetry(r.EventPath, "script", 0)
	if err != nil {
		return err
	}
	if n := len(script); n > 0 && script[n-1] == 0 {
		script = script[:n-1]
	}

	env, err := readWithRetry(r.EventPath, "environment", 0)
	if err != nil {
		return err
	}
	if n := len(env); n > 0 && env[n-1] == 0 {
		env = env[:n-1]
	}

	r.Script = script
	r.Environment = env
	r.ExtraInfo = parseSlurmEnvironment(env, s.filterRegex)
	return nil
}

// files returns job.<id>_script and job.<id>_environment in that order.
func (s *Slurm) files(r *JobRecord) []File {
	return []File{
		{Name: fmt.Sprintf("job.%s_script", r.JobID), Contents: r.Script},
		{Name: fmt.Sprintf("job.%s_environment", r.JobID), Contents: r.Environment},
	}
}

// parseSlurmEnvironment splits a NUL-delimited KEY=VALUE blob into a map.
// The leading 4 bytes are an implementation-defined header and are always
// skipped for this scheduler shape (see SPEC_FULL.md Design Notes — this
// is adapter-specific, not sniffed). Entries that are empty after
// trimming are dropped. Entries with exactly one '=' become a key/value
// pair, unless the key is empty or matches filterRegex, in which case
// they're dropped. Entries with zero or more than one '=' are preserved
// verbatim as a key with an empty value.
func parseSlurmEnvironment(raw []byte, filterRegex *regexp.Regexp) map[string]string {
	if len(raw) >= 4 {
		raw = raw[4:]
	}
	out := make(map[string]string)
	for _, entry := range strings.Split(string(raw), "\x00") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "=")
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			if key == "" {
				continue
			}
			if filterRegex != nil && filterRegex.MatchString(key) {
				continue
			}
			out[key] = parts[1]
			continue
		}
		out[entry] = ""
	}
	return out
}
