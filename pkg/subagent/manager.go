// Package subagent implements the background-task lifecycle for agents
// spawned by the Spawn tool: a concurrency-limited pool of handles that
// run an independent agent-loop interaction and report their textual
// result (or failure) back to the caller.
package subagent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Status is the lifecycle state of a SubagentHandle. Transitions to a
// terminal state (Completed/Failed) happen exactly once.
type Status int

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is a snapshot of a subagent's lifecycle. The manager holds the
// authoritative, mutable copy; Handle values returned to callers are
// immutable point-in-time copies.
type Handle struct {
	ID          string
	Label       string
	Status      Status
	Result      string
	FailureMsg  string
	CreatedAt   time.Time
	CompletedAt time.Time
}

type record struct {
	mu     sync.Mutex
	handle Handle
}

// Manager runs background subagent tasks under a global concurrency
// limit. Terminal handles are retained forever in this release; nothing
// reaps them.
type Manager struct {
	maxConcurrent int64
	sem           *semaphore.Weighted

	mu      sync.RWMutex
	records map[string]*record

	now func() time.Time
}

// NewManager creates a manager allowing at most maxConcurrent subagents
// to be Running simultaneously.
func NewManager(maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		maxConcurrent: int64(maxConcurrent),
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		records:       make(map[string]*record),
		now:           time.Now,
	}
}

// SpawnFn launches fn in a background goroutine under label, enforcing the
// manager's concurrency limit. It returns the new handle's id, or an error
// if the limit is already reached.
func (m *Manager) SpawnFn(ctx context.Context, label string, fn func(ctx context.Context) (string, error)) (string, error) {
	if !m.sem.TryAcquire(1) {
		return "", fmt.Errorf("concurrent limit reached %d/%d", m.runningCount(), m.maxConcurrent)
	}

	id := newID()
	rec := &record{handle: Handle{
		ID:        id,
		Label:     label,
		Status:    StatusRunning,
		CreatedAt: m.now(),
	}}

	m.mu.Lock()
	m.records[id] = rec
	m.mu.Unlock()

	go func() {
		defer m.sem.Release(1)
		result, err := fn(ctx)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.handle.CompletedAt = m.now()
		if err != nil {
			rec.handle.Status = StatusFailed
			rec.handle.FailureMsg = err.Error()
			slog.Warn("subagent failed", "id", id, "label", label, "error", err)
		} else {
			rec.handle.Status = StatusCompleted
			rec.handle.Result = result
		}
	}()

	return id, nil
}

func (m *Manager) runningCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		r.mu.Lock()
		if r.handle.Status == StatusRunning {
			n++
		}
		r.mu.Unlock()
	}
	return n
}

// ActiveCount returns the number of handles currently Running.
func (m *Manager) ActiveCount() int { return m.runningCount() }

// List returns a snapshot of every known handle.
func (m *Manager) List() []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handle, 0, len(m.records))
	for _, r := range m.records {
		r.mu.Lock()
		out = append(out, r.handle)
		r.mu.Unlock()
	}
	return out
}

// GetResult returns a snapshot of a single handle by id.
func (m *Manager) GetResult(id string) (Handle, bool) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Handle{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.handle, true
}

func newID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
