// Package approval implements human-in-the-loop gating for shell commands
// the permission policy marks as requiring approval: a pending-request
// table, a bounded history ring buffer, and atomic response-time metrics.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal disposition of an approval request.
type Outcome int

const (
	Approved Outcome = iota
	Rejected
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return "timeout"
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "approved":
		*o = Approved
	case "rejected":
		*o = Rejected
	case "timeout":
		*o = Timeout
	default:
		return fmt.Errorf("approval: unknown outcome %q", s)
	}
	return nil
}

// Request describes a single approval ask.
type Request struct {
	ID             uuid.UUID `json:"id"`
	SessionID      string    `json:"sessionId"`
	Channel        string    `json:"channel"`
	ChatID         string    `json:"chatId"`
	Command        string    `json:"command"`
	WorkingDir     string    `json:"workingDir"`
	Context        string    `json:"context,omitempty"`
	DisplayMessage string    `json:"displayMessage,omitempty"`
	TimeoutSecs    int       `json:"timeoutSecs"`
	Timestamp      time.Time `json:"timestamp"`
}

// Response is the human's answer to a pending Request.
type Response struct {
	RequestID uuid.UUID `json:"requestId"`
	Approved  bool      `json:"approved"`
	Responder string    `json:"responder"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry pairs a request with its terminal outcome. Response is
// non-nil exactly when Outcome is Approved or Rejected; a Timeout entry
// always carries a nil Response.
type HistoryEntry struct {
	Request     Request   `json:"request"`
	Response    *Response `json:"response,omitempty"`
	Outcome     Outcome   `json:"status"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Notifier is the subset of the message bus the manager needs to surface
// a pending request to channel adapters. A nil Notifier simply skips
// publication.
type Notifier interface {
	PublishApprovalRequest(req Request)
}

const defaultHistoryCapacity = 1000

type pending struct {
	req    Request
	respCh chan Response
}

// Manager tracks pending approval requests and a bounded history of
// resolved ones.
type Manager struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*pending
	history []HistoryEntry // ring buffer; oldest evicted first
	cap     int

	notifier Notifier
	now      func() time.Time

	totalRequests  int64
	approvedCount  int64
	rejectedCount  int64
	timeoutCount   int64
	responseTimeNs int64 // running sum
	responseCount  int64 // running count, for average
}

// NewManager creates an approval manager with the default history
// capacity (1000). notifier may be nil.
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		pending:  make(map[uuid.UUID]*pending),
		cap:      defaultHistoryCapacity,
		notifier: notifier,
		now:      time.Now,
	}
}

// RequestApproval creates a fresh request, publishes it (if a notifier is
// configured), and blocks until a response arrives, timeoutSecs elapses,
// or ctx is cancelled (treated as a Timeout). The pending entry is always
// removed before returning.
func (m *Manager) RequestApproval(ctx context.Context, sessionID, channel, chatID, command, workingDir, context_, displayMessage string, timeoutSecs int) (Outcome, error) {
	atomic.AddInt64(&m.totalRequests, 1)
	start := m.now()

	id := uuid.New()
	req := Request{
		ID:             id,
		SessionID:      sessionID,
		Channel:        channel,
		ChatID:         chatID,
		Command:        command,
		WorkingDir:     workingDir,
		Context:        context_,
		DisplayMessage: displayMessage,
		TimeoutSecs:    timeoutSecs,
		Timestamp:      start,
	}

	respCh := make(chan Response, 1)
	m.mu.Lock()
	m.pending[id] = &pending{req: req, respCh: respCh}
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.PublishApprovalRequest(req)
	}

	timer := time.NewTimer(time.Duration(timeoutSecs) * time.Second)
	defer timer.Stop()

	var outcome Outcome
	var response *Response
	select {
	case resp, ok := <-respCh:
		if !ok {
			outcome = Timeout
		} else {
			r := resp
			response = &r
			if resp.Approved {
				outcome = Approved
			} else {
				outcome = Rejected
			}
		}
	case <-timer.C:
		outcome = Timeout
	case <-ctx.Done():
		outcome = Timeout
	}

	completedAt := m.now()
	m.mu.Lock()
	delete(m.pending, id)
	m.pushHistoryLocked(HistoryEntry{Request: req, Response: response, Outcome: outcome, CompletedAt: completedAt})
	m.mu.Unlock()

	atomic.AddInt64(&m.responseTimeNs, int64(m.now().Sub(start)))
	atomic.AddInt64(&m.responseCount, 1)
	switch outcome {
	case Approved:
		atomic.AddInt64(&m.approvedCount, 1)
	case Rejected:
		atomic.AddInt64(&m.rejectedCount, 1)
	case Timeout:
		atomic.AddInt64(&m.timeoutCount, 1)
	}

	return outcome, nil
}

// SubmitResponse forwards resp to the pending request it answers. It is a
// best-effort delivery: if the requester has already timed out, the send
// is dropped rather than blocking.
func (m *Manager) SubmitResponse(resp Response) error {
	m.mu.Lock()
	p, ok := m.pending[resp.RequestID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("request not found: %s", resp.RequestID)
	}
	select {
	case p.respCh <- resp:
	default:
	}
	return nil
}

func (m *Manager) pushHistoryLocked(e HistoryEntry) {
	if len(m.history) >= m.cap {
		m.history = m.history[1:]
	}
	m.history = append(m.history, e)
}

// History returns a snapshot of resolved requests, oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// historyFile is the on-disk shape of approval_history.json: a flat list
// of resolved entries, oldest first.
type historyFile struct {
	Entries []HistoryEntry `json:"entries"`
}

// SnapshotHistory writes the current history to path as JSON, creating
// parent directories as needed.
func (m *Manager) SnapshotHistory(path string) error {
	entries := m.History()
	data, err := json.MarshalIndent(historyFile{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal approval history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create approval history directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadHistory replaces the in-memory history with the contents of path.
// A missing file is not an error; the history is simply left empty.
func (m *Manager) LoadHistory(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read approval history: %w", err)
	}
	var hf historyFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return fmt.Errorf("failed to parse approval history: %w", err)
	}
	if len(hf.Entries) > m.cap {
		hf.Entries = hf.Entries[len(hf.Entries)-m.cap:]
	}
	m.mu.Lock()
	m.history = hf.Entries
	m.mu.Unlock()
	return nil
}

// MetricsSnapshot reports approval counters and the derived approval rate
// and average response time.
type MetricsSnapshot struct {
	TotalRequests       int64
	Approved            int64
	Rejected            int64
	TimedOut            int64
	ApprovalRate        float64
	AvgResponseTimeMs   float64
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	total := atomic.LoadInt64(&m.totalRequests)
	approved := atomic.LoadInt64(&m.approvedCount)
	s := MetricsSnapshot{
		TotalRequests: total,
		Approved:      approved,
		Rejected:      atomic.LoadInt64(&m.rejectedCount),
		TimedOut:      atomic.LoadInt64(&m.timeoutCount),
	}
	if total > 0 {
		s.ApprovalRate = float64(approved) / float64(total)
	}
	if n := atomic.LoadInt64(&m.responseCount); n > 0 {
		s.AvgResponseTimeMs = float64(atomic.LoadInt64(&m.responseTimeNs)) / float64(n) / float64(time.Millisecond)
	}
	return s
}
