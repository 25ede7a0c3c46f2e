package subagent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSpawnFn_CompletesSuccessfully(t *testing.T) {
	m := NewManager(4)
	done := make(chan struct{})

	id, err := m.SpawnFn(context.Background(), "greet", func(ctx context.Context) (string, error) {
		defer close(done)
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-done
	waitForTerminal(t, m, id)

	h, ok := m.GetResult(id)
	if !ok {
		t.Fatal("expected handle to exist")
	}
	if h.Status != StatusCompleted || h.Result != "hello" {
		t.Fatalf("unexpected handle: %+v", h)
	}
}

func TestSpawnFn_RecordsFailure(t *testing.T) {
	m := NewManager(4)
	done := make(chan struct{})

	id, _ := m.SpawnFn(context.Background(), "boom", func(ctx context.Context) (string, error) {
		defer close(done)
		return "", errors.New("kaboom")
	})
	<-done
	waitForTerminal(t, m, id)

	h, _ := m.GetResult(id)
	if h.Status != StatusFailed || h.FailureMsg != "kaboom" {
		t.Fatalf("unexpected handle: %+v", h)
	}
}

func TestSpawnFn_EnforcesConcurrencyLimit(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	_, err := m.SpawnFn(context.Background(), "blocker", func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	_, err = m.SpawnFn(context.Background(), "second", func(ctx context.Context) (string, error) {
		return "", nil
	})
	if err == nil {
		t.Fatal("expected concurrency limit error")
	}
	close(release)
}

func TestList_ReturnsAllHandles(t *testing.T) {
	m := NewManager(4)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		_, _ = m.SpawnFn(context.Background(), "task", func(ctx context.Context) (string, error) {
			defer wg.Done()
			return "ok", nil
		})
	}
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if len(m.List()) != 3 {
		t.Fatalf("expected 3 handles, got %d", len(m.List()))
	}
}

func waitForTerminal(t *testing.T, m *Manager, id string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h, ok := m.GetResult(id); ok && h.Status != StatusRunning {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("handle never reached a terminal state")
}
