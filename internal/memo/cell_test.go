package memo

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCellStartsEmpty(t *testing.T) {
	var c Cell[int]
	if c.Filled() {
		t.Fatal("zero cell should be empty")
	}
	if v, ok := c.Get(); ok || v != 0 {
		t.Fatalf("Get on empty cell = (%d, %v), want (0, false)", v, ok)
	}
}

func TestCellInitRunsOnce(t *testing.T) {
	var c Cell[string]
	calls := 0
	for i := 0; i < 3; i++ {
		got := c.GetOrInit(func() string {
			calls++
			return "value"
		})
		if got != "value" {
			t.Fatalf("GetOrInit = %q, want %q", got, "value")
		}
	}
	if calls != 1 {
		t.Fatalf("init called %d times, want 1", calls)
	}
	if v, ok := c.Get(); !ok || v != "value" {
		t.Fatalf("Get = (%q, %v), want (value, true)", v, ok)
	}
}

func TestCellKeepsZeroResult(t *testing.T) {
	var c Cell[*int]
	calls := 0
	for i := 0; i < 2; i++ {
		if got := c.GetOrInit(func() *int { calls++; return nil }); got != nil {
			t.Fatalf("GetOrInit = %v, want nil", got)
		}
	}
	if calls != 1 {
		t.Fatalf("nil result recomputed: init called %d times", calls)
	}
	if !c.Filled() {
		t.Fatal("cell holding nil should count as filled")
	}
}

func TestCellConcurrentInit(t *testing.T) {
	var c Cell[int]
	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	const workers = 32
	results := make([]int, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = c.GetOrInit(func() int {
				calls.Add(1)
				return 42
			})
		}(i)
	}
	close(start)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("init called %d times under contention, want 1", n)
	}
	for i, r := range results {
		if r != 42 {
			t.Errorf("worker %d observed %d, want 42", i, r)
		}
	}
}
