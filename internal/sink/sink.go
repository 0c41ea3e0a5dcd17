// Package sink implements the archive destinations a JobRecord can be
// submitted to: a local filesystem tree, a Kafka topic, or an
// Elasticsearch index. Exactly one sink is active per run.
package sink

import (
	"context"
	"errors"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

// ErrInvalidData is returned when a JobRecord cannot be represented in
// the sink's wire format (e.g. it fails to marshal to JSON). It is
// always surfaced to the caller; it is never the kind of failure a sink
// silently logs and swallows.
var ErrInvalidData = errors.New("sink: job record could not be encoded")

// ErrTransport classifies a failure reaching the sink's backing store
// (broker unreachable, cluster unavailable). The message-bus sink never
// returns it from Submit — that failure mode is logged and swallowed by
// design — but still wraps it for the Elasticsearch sink and the
// startup connectivity checks, so callers that do want to distinguish
// "your data was malformed" from "the backend was unreachable" can use
// errors.Is instead of string-matching.
var ErrTransport = errors.New("sink: failed to reach archive backend")

// Sink archives a single fully-read JobRecord.
type Sink interface {
	// Submit archives record. It must be safe to call from multiple
	// goroutines, though the Processor today only ever calls it from
	// one at a time.
	Submit(ctx context.Context, record *scheduler.JobRecord) error

	// Close releases any resources (open files, network clients) held
	// by the sink. Submit must not be called after Close returns.
	Close() error
}
