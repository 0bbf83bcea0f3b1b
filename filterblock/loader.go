package filterblock

import (
	"sync"
)

// loaderJobsLen is the buffered job queue depth; in practice initial-load
// jobs rarely back up since each one only loads k0 units off an mmap.
const loaderJobsLen = 4096

// Loader is the single background worker that runs a reader's initial
// filter load off the hot path, grounded in the teacher pack's channel-based
// single-worker job queue (cockroachdb-pebble's cleanupManager). It never
// acquires a multiqueue mutex; each job only touches its own reader's
// internal mutex.
type Loader struct {
	jobsCh    chan func()
	waitGroup sync.WaitGroup
	once      sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewLoader constructs a Loader; the worker goroutine is started lazily on
// the first Schedule call.
func NewLoader() *Loader {
	return &Loader{
		jobsCh: make(chan func(), loaderJobsLen),
		done:   make(chan struct{}),
	}
}

func (l *Loader) start() {
	l.once.Do(func() {
		l.waitGroup.Add(1)
		go l.mainLoop()
	})
}

func (l *Loader) mainLoop() {
	defer l.waitGroup.Done()
	for {
		select {
		case job, ok := <-l.jobsCh:
			if !ok {
				return
			}
			job()
		case <-l.done:
			// Drain any jobs already queued before exiting.
			for {
				select {
				case job := <-l.jobsCh:
					job()
				default:
					return
				}
			}
		}
	}
}

// Schedule enqueues fn to run on the background worker, starting it if this
// is the first job.
func (l *Loader) Schedule(fn func()) {
	l.start()
	l.jobsCh <- fn
}

// Close stops accepting new work conceptually (callers must not call
// Schedule after Close) and waits for the worker to drain its queue.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.waitGroup.Wait()
}
