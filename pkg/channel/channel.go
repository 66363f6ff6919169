// Package channel defines the two-way transport contract the gateway
// core consumes. Concrete adapters (Telegram bot, WhatsApp session, the
// HTTP webhook shim) live outside the core; the core only ever sees
// this interface plus the narrow WhatsApp specialization used for QR
// pairing.
package channel

import (
	"context"

	"github.com/omega-agent/omega/pkg/store"
)

// Channel is one transport for user messages.
type Channel interface {
	// Name identifies the transport ("telegram", "whatsapp", "webhook").
	Name() string

	// Start begins delivering inbound messages on the returned channel.
	// The stream is closed when Stop is called or the context is done.
	Start(ctx context.Context) (<-chan store.IncomingMessage, error)

	// Send delivers one outbound message.
	Send(ctx context.Context, msg store.OutgoingMessage) error

	// SendTyping emits a typing indicator toward target, best-effort.
	SendTyping(ctx context.Context, target string) error

	// Stop shuts the transport down. Idempotent.
	Stop() error
}

// WhatsAppChannel is the narrow-cast a WhatsApp transport additionally
// satisfies, used by the WHATSAPP_QR marker and the /api/pair endpoint.
type WhatsAppChannel interface {
	Channel

	// RestartPairing tears down the current session and returns a fresh
	// QR code payload for the user to scan.
	RestartPairing(ctx context.Context) (qr string, err error)

	// PairStatus reports whether the session is currently paired.
	PairStatus(ctx context.Context) (paired bool, err error)
}

// Registry holds the gateway's started channels by name and resolves
// the default outbound channel (telegram preferred over whatsapp, then
// anything else in registration order).
type Registry struct {
	names    []string
	channels map[string]Channel
}

// NewRegistry builds a Registry over the given channels, preserving
// registration order for default selection.
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		r.names = append(r.names, ch.Name())
		r.channels[ch.Name()] = ch
	}
	return r
}

// Get returns the channel registered under name, or nil.
func (r *Registry) Get(name string) Channel {
	if r == nil {
		return nil
	}
	return r.channels[name]
}

// Default resolves the default outbound channel: telegram if present,
// then whatsapp, then the first registered channel.
func (r *Registry) Default() Channel {
	if r == nil || len(r.names) == 0 {
		return nil
	}
	for _, preferred := range []string{"telegram", "whatsapp"} {
		if ch, ok := r.channels[preferred]; ok {
			return ch
		}
	}
	return r.channels[r.names[0]]
}

// WhatsApp returns the registered WhatsApp specialization, if any
// channel provides one.
func (r *Registry) WhatsApp() WhatsAppChannel {
	if r == nil {
		return nil
	}
	for _, name := range r.names {
		if wa, ok := r.channels[name].(WhatsAppChannel); ok {
			return wa
		}
	}
	return nil
}

// Names lists registered channel names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
