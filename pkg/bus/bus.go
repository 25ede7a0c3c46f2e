// Package bus implements the typed message bus that bridges channel
// adapters (Telegram, Discord, Feishu, web) to the agent runtime.
package bus

import (
	"log/slog"
	"sync"
)

// InboundMessage is a message received from a channel adapter.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp int64
	Media     []string
	Metadata  map[string]string
}

// Group reports whether the metadata marks this message as coming from a
// group chat rather than a direct message.
func (m InboundMessage) Group() bool {
	return m.Metadata != nil && m.Metadata["group"] == "true"
}

// MessageType discriminates the payload carried by an OutboundMessage.
type MessageType int

const (
	// MessageTypeChat carries a plain chat reply.
	MessageTypeChat MessageType = iota
	// MessageTypeApprovalRequest carries a human-in-the-loop approval request.
	MessageTypeApprovalRequest
)

// MediaRef is a reference to a media attachment on an outbound chat message.
type MediaRef struct {
	Path        string
	ContentType string
}

// OutboundMessage is a message the router or a tool wants delivered to a channel.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	ReplyTo  string
	Type     MessageType
	Content  string
	Media    []MediaRef
	Approval interface{} // *approval.Request; kept as interface{} to avoid an import cycle
}

// Subscriber receives outbound messages whose (channel, chat id) it cares about.
type Subscriber struct {
	ID      string
	Channel string // empty = all channels
	ChatID  string // empty = all chats on Channel
	C       chan OutboundMessage
}

// Bus is the message bus: a single-producer-fan-in inbound channel plus a
// fan-out broadcast for outbound messages. Inbound preserves the delivery
// order of a single adapter. Outbound delivery is fan-out per subscriber;
// a slow subscriber drops messages rather than stall the bus (logged at warn).
type Bus struct {
	inbound chan InboundMessage

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// New creates a Bus with the given inbound channel capacity.
func New(inboundCapacity int) *Bus {
	if inboundCapacity <= 0 {
		inboundCapacity = 256
	}
	return &Bus{
		inbound: make(chan InboundMessage, inboundCapacity),
		subs:    make(map[string]*Subscriber),
	}
}

// PublishInbound enqueues an inbound message. It blocks if the inbound
// channel is full, applying backpressure to the calling adapter.
func (b *Bus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// Inbound returns the channel routers should range over to consume messages.
func (b *Bus) Inbound() <-chan InboundMessage {
	return b.inbound
}

// Subscribe registers a listener for outbound messages matching (channel, chatID).
// Either field may be left empty to match broadly. The returned channel has a
// small buffer; the caller must drain it or miss messages.
func (b *Bus) Subscribe(id, channel, chatID string, bufSize int) <-chan OutboundMessage {
	if bufSize <= 0 {
		bufSize = 32
	}
	sub := &Subscriber{ID: id, Channel: channel, ChatID: chatID, C: make(chan OutboundMessage, bufSize)}
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return sub.C
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		close(sub.C)
	}
}

// PublishOutbound fans an outbound message out to every subscriber whose
// filter matches. A full subscriber channel drops the message with a
// logged warning rather than blocking the publisher.
func (b *Bus) PublishOutbound(msg OutboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.Channel != "" && sub.Channel != msg.Channel {
			continue
		}
		if sub.ChatID != "" && sub.ChatID != msg.ChatID {
			continue
		}
		select {
		case sub.C <- msg:
		default:
			slog.Warn("bus: dropping outbound message for slow subscriber",
				"subscriber", sub.ID, "channel", msg.Channel, "chat_id", msg.ChatID)
		}
	}
}
