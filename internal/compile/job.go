package compile

import (
	"context"

	"github.com/groovy-tools/gls/internal/source"
)

// Job is an in-flight asynchronous compilation. A job resolves exactly
// once; any number of callers may await it concurrently. Cancelling one
// caller's await does not cancel the job — other callers may still be
// waiting on it.
type Job struct {
	key    source.Key
	done   chan struct{}
	result Result
	err    error
}

func newJob(key source.Key) *Job {
	return &Job{key: key, done: make(chan struct{})}
}

// Key returns the file this job compiles.
func (j *Job) Key() source.Key {
	return j.key
}

// Done returns a channel closed when the job has resolved.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// complete resolves the job. Must be called exactly once.
func (j *Job) complete(result Result, err error) {
	j.result = result
	j.err = err
	close(j.done)
}

// Await blocks until the job resolves or ctx is cancelled. The returned
// error is either the awaiting context's error or the job's own
// cancellation error; backend failures never surface here — they are folded
// into the Result as a synthetic diagnostic.
func (j *Job) Await(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-j.done:
		return j.result, j.err
	}
}
