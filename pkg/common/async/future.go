// Package async provides the primitives behind the non-blocking call surface:
// a Future that resolves exactly once and a Serial executor that runs jobs
// one at a time in submission order.
package async

// Future holds the eventual result of an operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] { return &Future[T]{done: make(chan struct{})} }

// Resolved returns a Future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation completes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until the operation completes and returns only its error.
func (f *Future[T]) Err() error {
	_, err := f.Await()
	return err
}
