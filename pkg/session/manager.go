package session

import (
	"sort"
	"sync"
	"time"
)

// Message is a single turn in a session's history. History is an ordered
// sequence and is never reordered.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Meta describes a session's identity and bookkeeping timestamps.
// Invariant: Updated >= Created; Updated advances on every append.
type Meta struct {
	ID           ID
	Participants []string
	Created      time.Time
	Updated      time.Time
}

type entry struct {
	meta    Meta
	history []Message
}

// Manager owns session storage exclusively: SessionId -> (Meta, history).
// It is safe for concurrent use; a single write lock protects the map.
// Callers never mutate the same session concurrently in practice because
// the router routes a session's work through a single agent loop, but
// Manager itself enforces no such ordering.
type Manager struct {
	mu       sync.RWMutex
	sessions map[ID]*entry
	now      func() time.Time
}

// NewManager creates an empty in-memory SessionManager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[ID]*entry),
		now:      time.Now,
	}
}

// ResolveSession is pure: it derives a SessionId from channel routing
// inputs without creating anything. metadata["group"] == "true" selects
// Group scope, otherwise Dm.
func ResolveSession(agentID, channel, chatID string, metadata map[string]string) ID {
	scope := ScopeDM
	if metadata != nil && metadata["group"] == "true" {
		scope = ScopeGroup
	}
	return ID{AgentID: agentID, Channel: channel, Scope: scope, Identifier: chatID}
}

// GetOrCreate returns the session's history, creating the session (with
// Created == Updated == now) if it does not already exist. Idempotent.
func (m *Manager) GetOrCreate(id ID) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.getOrCreateLocked(id)
	out := make([]Message, len(e.history))
	copy(out, e.history)
	return out
}

func (m *Manager) getOrCreateLocked(id ID) *entry {
	e, ok := m.sessions[id]
	if ok {
		return e
	}
	now := m.now()
	e = &entry{meta: Meta{ID: id, Created: now, Updated: now}}
	m.sessions[id] = e
	return e
}

// GetHistory returns a copy of the session's history, or (nil, false) if
// the session does not exist.
func (m *Manager) GetHistory(id ID) ([]Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	out := make([]Message, len(e.history))
	copy(out, e.history)
	return out, true
}

// GetMeta returns the session's metadata, or (Meta{}, false) if absent.
func (m *Manager) GetMeta(id ID) (Meta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return Meta{}, false
	}
	return e.meta, true
}

// Append appends a message to the session's history, creating the
// session if absent, and advances Updated to now.
func (m *Manager) Append(id ID, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.getOrCreateLocked(id)
	e.history = append(e.history, msg)
	e.meta.Updated = m.now()
}

// SessionView pairs a session's metadata with a copy of its history, for
// unified multi-agent channel views.
type SessionView struct {
	Meta    Meta
	History []Message
}

// GetSessionsForChannel returns every session for (channel, scope,
// identifier) across all agents, with the main agent's session first and
// the rest ordered by agent id ascending.
func (m *Manager) GetSessionsForChannel(channel string, scope Scope, identifier string) []SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var views []SessionView
	for id, e := range m.sessions {
		if id.Channel != channel || id.Scope != scope || id.Identifier != identifier {
			continue
		}
		hist := make([]Message, len(e.history))
		copy(hist, e.history)
		views = append(views, SessionView{Meta: e.meta, History: hist})
	}

	sort.Slice(views, func(i, j int) bool {
		iMain := views[i].Meta.ID.AgentID == "main"
		jMain := views[j].Meta.ID.AgentID == "main"
		if iMain != jMain {
			return iMain
		}
		return views[i].Meta.ID.AgentID < views[j].Meta.ID.AgentID
	})
	return views
}

// SessionSummary is a lightweight session descriptor for listing.
type SessionSummary struct {
	Meta         Meta
	MessageCount int
}

// GetAllSessions returns a summary of every known session.
func (m *Manager) GetAllSessions() []SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionSummary, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, SessionSummary{Meta: e.meta, MessageCount: len(e.history)})
	}
	return out
}

// SessionCount returns the number of known sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
