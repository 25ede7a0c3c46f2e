// Package session implements SessionId resolution and the in-memory
// SessionManager that owns per-session history.
package session

import (
	"fmt"
	"strings"
)

// Scope discriminates full-form session identifiers.
type Scope string

const (
	ScopeDM    Scope = "dm"
	ScopeGroup Scope = "group"
	ScopeTopic Scope = "topic"
)

func validScope(s Scope) bool {
	switch s {
	case ScopeDM, ScopeGroup, ScopeTopic:
		return true
	default:
		return false
	}
}

// ID is a tagged session identifier, either simple (agent, channel) or
// full (agent, channel, scope, identifier). Equality and hashing (via the
// comparable struct fields) are structural over all fields.
type ID struct {
	AgentID    string
	Channel    string
	Scope      Scope  // "" for the simple form
	Identifier string // "" for the simple form
}

// IsFull reports whether this is a (agent, channel, scope, identifier) id.
func (id ID) IsFull() bool {
	return id.Scope != ""
}

// String renders the canonical textual form:
// "agent:<agent_id>:<channel>" or "agent:<agent_id>:<channel>:<scope>:<identifier>".
func (id ID) String() string {
	if id.IsFull() {
		return fmt.Sprintf("agent:%s:%s:%s:%s", id.AgentID, id.Channel, id.Scope, id.Identifier)
	}
	return fmt.Sprintf("agent:%s:%s", id.AgentID, id.Channel)
}

// Parse parses the canonical textual form of a SessionId. It rejects any
// shape other than exactly 3 or 5 colon-separated parts starting with the
// literal "agent", any empty component, and any unrecognized scope.
func Parse(text string) (ID, error) {
	parts := strings.Split(text, ":")

	if len(parts) != 3 && len(parts) != 5 {
		return ID{}, fmt.Errorf("session id %q: expected 3 or 5 colon-separated parts, got %d", text, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return ID{}, fmt.Errorf("session id %q: empty component", text)
		}
	}
	if parts[0] != "agent" {
		return ID{}, fmt.Errorf("session id %q: must start with literal \"agent\"", text)
	}

	if len(parts) == 3 {
		return ID{AgentID: parts[1], Channel: parts[2]}, nil
	}

	scope := Scope(parts[3])
	if !validScope(scope) {
		return ID{}, fmt.Errorf("session id %q: unknown scope %q", text, parts[3])
	}
	return ID{AgentID: parts[1], Channel: parts[2], Scope: scope, Identifier: parts[4]}, nil
}
