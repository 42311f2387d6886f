package async

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

func TestReadyAndFailed(t *testing.T) {
	v, err := Ready(42).Await()
	if err != nil || v != 42 {
		t.Errorf("Ready(42).Await() = %v, %v; want 42, nil", v, err)
	}

	boom := errors.New("boom")
	f := Failed[int](boom)
	if f.State() != StateFailed {
		t.Errorf("State() = %v, want failed", f.State())
	}
	if _, err := f.Await(); !errors.Is(err, boom) {
		t.Errorf("Await() error = %v, want boom", err)
	}
	if _, err := Failed[int](nil).Await(); !errors.Is(err, ErrNilTask) {
		t.Errorf("Failed(nil).Await() error = %v, want ErrNilTask", err)
	}
}

func TestSettleOnlyOnce(t *testing.T) {
	f, settle := New[string]()
	if f.State() != StatePending {
		t.Fatalf("State() = %v, want pending", f.State())
	}
	settle("first", nil)
	settle("second", nil)
	settle("", errors.New("late"))

	v, err := f.Await()
	if v != "first" || err != nil {
		t.Errorf("Await() = %q, %v; want first, nil", v, err)
	}
}

func TestGo(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (int, error) {
		<-release
		return 7, nil
	})

	select {
	case <-f.Done():
		t.Fatal("future settled before work finished")
	default:
	}

	close(release)
	if v, err := f.Await(); v != 7 || err != nil {
		t.Errorf("Await() = %v, %v; want 7, nil", v, err)
	}
	if _, err := Go[int](nil).Await(); !errors.Is(err, ErrNilTask) {
		t.Errorf("Go(nil).Await() error = %v, want ErrNilTask", err)
	}
}

func TestSubmitRunsOnPool(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(2, 8, time.Second)
	t.Cleanup(pool.Stop)

	var ran atomic.Int32
	futures := make([]*Future[int], 4)
	for i := range futures {
		futures[i] = Submit(pool, i, func() (int, error) {
			ran.Add(1)
			return i * i, nil
		})
	}
	for i, f := range futures {
		v, err := f.Await()
		if err != nil || v != i*i {
			t.Errorf("future %d = %v, %v; want %d, nil", i, v, err, i*i)
		}
	}
	if ran.Load() != 4 {
		t.Errorf("ran = %d, want 4", ran.Load())
	}
}

func TestThenPropagates(t *testing.T) {
	doubled := Then(Ready(21), func(v int) (int, error) { return v * 2, nil })
	if v, _ := doubled.Await(); v != 42 {
		t.Errorf("Then() = %d, want 42", v)
	}

	boom := errors.New("boom")
	called := false
	failed := Then(Failed[int](boom), func(v int) (int, error) {
		called = true
		return v, nil
	})
	if _, err := failed.Await(); !errors.Is(err, boom) {
		t.Errorf("Then() error = %v, want boom", err)
	}
	if called {
		t.Error("Then() ran fn on a failed future")
	}
}
