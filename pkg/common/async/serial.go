package async

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned for jobs submitted after Shutdown.
var ErrClosed = errors.New("async: executor closed")

// Serial runs submitted jobs on a single goroutine in FIFO order.
// The queue is unbounded so Submit never blocks the caller.
type Serial struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewSerial starts a Serial executor.
func NewSerial() *Serial {
	s := &Serial{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

func (s *Serial) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		job()
	}
}

func (s *Serial) enqueue(job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.queue = append(s.queue, job)
	s.cond.Signal()
	return true
}

// Shutdown stops accepting jobs, drains the queue and waits for the worker.
// It must not be called from inside a job.
func (s *Serial) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

// Submit schedules fn on s and returns its Future.
// A panic inside fn resolves the Future with an error.
func Submit[T any](s *Serial, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	job := func() {
		var (
			val T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("async: job panicked: %v", r))
				return
			}
			f.resolve(val, err)
		}()
		val, err = fn()
	}
	if !s.enqueue(job) {
		var zero T
		f.resolve(zero, ErrClosed)
	}
	return f
}
