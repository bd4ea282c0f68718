package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitFor_ImmediateSuccess(t *testing.T) {
	t.Parallel()
	result := WaitFor(t, func() bool {
		return true
	}, WithTimeout(time.Second))

	if !result {
		t.Error("expected WaitFor to return true for immediate success")
	}
}

func TestWaitFor_EventualSuccess(t *testing.T) {
	t.Parallel()
	counter := 0
	result := WaitFor(t, func() bool {
		counter++
		return counter >= 3
	}, WithTimeout(time.Second), WithInterval(10*time.Millisecond))

	if !result {
		t.Error("expected WaitFor to return true for eventual success")
	}
	if counter < 3 {
		t.Errorf("expected counter >= 3, got %d", counter)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	t.Parallel()
	result := WaitFor(t, func() bool {
		return false
	}, WithTimeout(50*time.Millisecond), WithInterval(10*time.Millisecond))

	if result {
		t.Error("expected WaitFor to return false on timeout")
	}
}

func TestMustWaitFor_Success(t *testing.T) {
	t.Parallel()
	MustWaitFor(t, func() bool {
		return true
	}, WithTimeout(time.Second))
}

func TestMustWaitForFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out.json")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("{}"), 0o644)
	}()

	MustWaitForFile(t, path, WithTimeout(time.Second), WithInterval(10*time.Millisecond))
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()
	opts := defaultOptions()
	WithTimeout(5 * time.Second)(&opts)

	if opts.Timeout != 5*time.Second {
		t.Errorf("expected Timeout to be 5s, got %v", opts.Timeout)
	}
}

func TestWithInterval(t *testing.T) {
	t.Parallel()
	opts := defaultOptions()
	WithInterval(25 * time.Millisecond)(&opts)

	if opts.Interval != 25*time.Millisecond {
		t.Errorf("expected Interval to be 25ms, got %v", opts.Interval)
	}
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := defaultOptions()

	if opts.Timeout != 10*time.Second {
		t.Errorf("expected default Timeout to be 10s, got %v", opts.Timeout)
	}
	if opts.Interval != 50*time.Millisecond {
		t.Errorf("expected default Interval to be 50ms, got %v", opts.Interval)
	}
}
