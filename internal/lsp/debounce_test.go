package lsp

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestDebouncerBatches(t *testing.T) {
	got := make(chan []string, 4)
	d := newDebouncer(20*time.Millisecond, func(uris []string) { got <- uris })
	defer d.Stop()

	d.Changed("file:///b.py")
	d.Changed("file:///a.py")
	d.Changed("file:///b.py")

	select {
	case uris := <-got:
		want := []string{"file:///a.py", "file:///b.py"}
		if !reflect.DeepEqual(uris, want) {
			t.Errorf("expected %v, got %v", want, uris)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case uris := <-got:
		t.Errorf("unexpected second batch %v", uris)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncerZeroIsSynchronous(t *testing.T) {
	var calls [][]string
	d := newDebouncer(0, func(uris []string) { calls = append(calls, uris) })

	d.Changed("file:///a.py")
	d.Changed("file:///a.py")
	if len(calls) != 2 {
		t.Fatalf("expected 2 synchronous calls, got %d", len(calls))
	}

	d.Stop()
	d.Changed("file:///a.py")
	if len(calls) != 2 {
		t.Errorf("changes after Stop should be ignored")
	}
}

func TestDebouncerForgetAndStop(t *testing.T) {
	var mu sync.Mutex
	var fired []string
	d := newDebouncer(20*time.Millisecond, func(uris []string) {
		mu.Lock()
		fired = append(fired, uris...)
		mu.Unlock()
	})

	d.Changed("file:///closed.py")
	d.Forget("file:///closed.py")
	time.Sleep(60 * time.Millisecond)

	d.Changed("file:///late.py")
	d.Stop()
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 0 {
		t.Errorf("expected nothing to fire, got %v", fired)
	}
}

func TestNewDebouncerRequiresCallback(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil callback")
		}
	}()
	newDebouncer(time.Millisecond, nil)
}
