package spool

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/deskbuddy/printcore/adapter"
)

type submission struct {
	job    Job
	target adapter.Target
	result chan Result
}

// Worker executes transport sessions serially on one dedicated goroutine.
// It accepts at most one job at a time: Submit is a non-blocking handoff
// that rejects with ErrBusy while a job is in flight.
type Worker struct {
	open     OpenFunc
	opts     Options
	log      zerolog.Logger
	onResult func(Result)

	jobs  chan submission
	busy  atomic.Bool
	state atomic.Int32
	quit  chan struct{}
	done  chan struct{}
}

// NewWorker creates a worker that opens devices with open and runs sessions
// with the given options. Call Start before submitting.
func NewWorker(open OpenFunc, opts Options, log zerolog.Logger) *Worker {
	return &Worker{
		open: open,
		opts: opts,
		log:  log,
		jobs: make(chan submission, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// OnResult registers a callback invoked after every job with its terminal
// result, for an external status display. Must be set before Start.
func (w *Worker) OnResult(fn func(Result)) {
	w.onResult = fn
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Stop shuts the worker down after any in-flight job finishes.
func (w *Worker) Stop() {
	close(w.quit)
	<-w.done
}

// Busy reports whether a job is in flight. Discovery must not run while this
// is true: the session owns the device exclusively until the job ends.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// State returns the current transport session state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Submit hands a job to the worker without blocking. It returns ErrBusy if a
// job is already in flight; the returned channel delivers the job's result.
func (w *Worker) Submit(job Job, target adapter.Target) (<-chan Result, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	sub := submission{
		job:    job,
		target: target,
		result: make(chan Result, 1),
	}
	w.jobs <- sub
	return sub.result, nil
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			// A submission accepted before Stop is already in flight: its
			// caller holds a result channel, so it must still run. Without
			// this drain the select could observe quit first and strand the
			// caller with busy stuck true.
			select {
			case sub := <-w.jobs:
				w.runJob(sub)
			default:
			}
			return
		case sub := <-w.jobs:
			w.runJob(sub)
		}
	}
}

func (w *Worker) runJob(sub submission) {
	// A cancel requested against a previous job must not cancel this one.
	if sub.job.Cancel != nil {
		sub.job.Cancel.Clear()
	}

	sess := &session{
		open: w.open,
		opts: w.opts,
		log:  w.log,
		setState: func(s State) {
			w.state.Store(int32(s))
		},
	}
	res := sess.run(sub.job, sub.target)

	// Teardown of a cancelled job resets the flag so it does not immediately
	// cancel the next independently started job.
	if sub.job.Cancel != nil {
		sub.job.Cancel.Clear()
	}

	w.log.Info().
		Stringer("outcome", res.Outcome).
		Str("detail", res.Detail).
		Msg("job finished")

	// Accept new jobs before the result is observed, so a caller reacting to
	// the result is never spuriously rejected.
	w.busy.Store(false)

	sub.result <- res
	if w.onResult != nil {
		w.onResult(res)
	}
}
