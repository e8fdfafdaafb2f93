package parallel

import "context"

// Future is the pending result of a dispatched Job.
type Future struct {
	done    chan struct{}
	outcome Outcome
	err     error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve is called exactly once per future.
func (f *Future) resolve(o Outcome, err error) {
	f.outcome = o
	f.err = err
	close(f.done)
}

// Done is closed when the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job completes.
func (f *Future) Wait() (Outcome, error) {
	<-f.done
	return f.outcome, f.err
}

// WaitContext is like Wait but gives up when ctx is done. The job itself
// keeps running.
func (f *Future) WaitContext(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, f.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
