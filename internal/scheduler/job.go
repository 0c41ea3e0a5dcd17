// Package scheduler encapsulates the scheduler-specific conventions that
// tell the archiver which spool paths to watch, which raw filesystem
// events represent a genuine new job, and how to pull a job's script and
// environment out of the scheduler's spool layout before the scheduler
// itself deletes them.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// File is a single archived artifact: a name paired with its raw bytes.
type File struct {
	Name     string
	Contents []byte
}

// ReadFunc performs the adapter-specific race-window-tolerant read that
// populates a JobRecord's Script, Environment, and ExtraInfo fields.
type ReadFunc func(ctx context.Context, r *JobRecord) error

// FilesFunc derives the ordered set of files a sink should archive from a
// populated JobRecord. Must be a pure function of the record's fields.
type FilesFunc func(r *JobRecord) []File

// JobRecord is the immutable-after-read unit of work that flows from a
// Watcher through the Processor to a Sink. It is created by an Adapter's
// BuildRecord, mutated exactly once by ReadJobInfo, and then consumed by
// exactly one Sink submission.
type JobRecord struct {
	// JobID is the scheduler's identifier, non-empty and stable once set.
	JobID string
	// Cluster is the operator-supplied cluster label attached at capture time.
	Cluster string
	// EventPath is the absolute path of the triggering filesystem object.
	EventPath string
	// Moment is set at construction and used by the Processor to decide
	// whether the debounce floor has already elapsed.
	Moment time.Time

	// Script holds the job script bytes once ReadJobInfo has succeeded.
	Script []byte
	// Environment holds the raw environment bytes once ReadJobInfo has
	// succeeded. For the Slurm shape this is the packed KEY=VALUE blob;
	// for the Torque shape it is unused (see torqueFiles).
	Environment []byte
	// ExtraInfo is the environment parsed into key/value pairs. The
	// Torque shape, whose "environment" isn't key/value shaped, leaves
	// it nil.
	ExtraInfo map[string]string

	read    ReadFunc
	filesFn FilesFunc

	// torqueFiles additionally carries the array-task / job-blob files
	// for the Torque shape, since that adapter's "files" are not a fixed
	// two-tuple the way Slurm's script+environment are.
	torqueFiles []File
}

// NewJobRecord constructs a JobRecord at the moment a qualifying event was
// observed. read and filesFn close over the adapter that produced this
// record; the record itself holds no reference back to the adapter,
// keeping JobRecord trivially constructible in tests.
func NewJobRecord(jobID, cluster, eventPath string, read ReadFunc, filesFn FilesFunc) *JobRecord {
	return &JobRecord{
		JobID:     jobID,
		Cluster:   cluster,
		EventPath: eventPath,
		Moment:    time.Now(),
		read:      read,
		filesFn:   filesFn,
	}
}

// ReadJobInfo populates Script, Environment (or the adapter's equivalent)
// and ExtraInfo by running the adapter-specific read strategy. It must be
// called at most once per record.
func (r *JobRecord) ReadJobInfo(ctx context.Context) error {
	if r.read == nil {
		return fmt.Errorf("scheduler: job %s has no read strategy configured", r.JobID)
	}
	return r.read(ctx, r)
}

// Files returns the ordered sequence of (name, bytes) pairs a sink should
// archive. It is a pure function of the record's populated fields and is
// safe to call repeatedly.
func (r *JobRecord) Files() []File {
	if r.filesFn == nil {
		return nil
	}
	return r.filesFn(r)
}
