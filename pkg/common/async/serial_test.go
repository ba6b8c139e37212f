package async_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/tinydal/pkg/common/async"
)

func TestSerial_PreservesSubmissionOrder(t *testing.T) {
	t.Parallel()

	s := async.NewSerial()
	defer s.Shutdown()

	var (
		mu    sync.Mutex
		order []int
	)
	futures := make([]*async.Future[int], 0, 100)
	for i := range 100 {
		futures = append(futures, async.Submit(s, func() (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}

	for i, f := range futures {
		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestSerial_PropagatesErrors(t *testing.T) {
	t.Parallel()

	s := async.NewSerial()
	defer s.Shutdown()

	boom := errors.New("boom")
	err := async.Submit(s, func() (struct{}, error) { return struct{}{}, boom }).Err()
	assert.ErrorIs(t, err, boom)
}

func TestSerial_RecoversPanics(t *testing.T) {
	t.Parallel()

	s := async.NewSerial()
	defer s.Shutdown()

	_, err := async.Submit(s, func() (int, error) { panic("bad job") }).Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad job")

	v, err := async.Submit(s, func() (int, error) { return 1, nil }).Await()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSerial_ShutdownDrainsAndRejects(t *testing.T) {
	t.Parallel()

	s := async.NewSerial()
	pending := async.Submit(s, func() (string, error) { return "ran", nil })
	s.Shutdown()

	v, err := pending.Await()
	require.NoError(t, err)
	assert.Equal(t, "ran", v)

	_, err = async.Submit(s, func() (string, error) { return "late", nil }).Await()
	assert.ErrorIs(t, err, async.ErrClosed)
}

func TestResolved(t *testing.T) {
	t.Parallel()

	f := async.Resolved(3, nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("resolved future should be done")
	}
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
