// SPDX-License-Identifier: EPL-2.0

package engine

import "sync"

// workers runs background jobs off the caller's goroutine.
type workers struct {
	jobs chan func()
	wg   sync.WaitGroup

	mtx    sync.RWMutex
	closed bool
}

func newWorkers(n int) *workers {
	w := &workers{jobs: make(chan func(), 16)}
	for range n {
		w.wg.Go(w.run)
	}
	return w
}

func (w *workers) run() {
	for job := range w.jobs {
		job()
	}
}

// submit queues job and reports false once the pool is closed.
func (w *workers) submit(job func()) bool {
	w.mtx.RLock()
	defer w.mtx.RUnlock()

	if w.closed {
		return false
	}
	w.jobs <- job

	return true
}

// close drains queued jobs and waits for them to finish.
func (w *workers) close() {
	w.mtx.Lock()
	if w.closed {
		w.mtx.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mtx.Unlock()

	w.wg.Wait()
}
