package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/osoko/wayfind/internal/core/domain"
)

// Subject layout. Session events and announcements are ephemeral UI
// fan-out, so they ride core NATS without a stream: a subscriber that was
// not listening has no use for a missed re-render hint.
const (
	subjectSessionEvents = "nav.session.%s.events"
	subjectAnnouncements = "nav.announce.%s"
	subjectLocation      = "nav.location.%s"
)

// Publisher implements ports.EventPublisher on a core NATS connection.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with endless reconnects.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// PublishSessionEvent fans a session mutation out to subscribed clients.
func (p *Publisher) PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(fmt.Sprintf(subjectSessionEvents, event.SessionID), data)
}

// PublishAnnouncement delivers a spoken announcement. audio may be nil
// when synthesis failed or is disabled; clients then fall back to text.
func (p *Publisher) PublishAnnouncement(ctx context.Context, sessionID, text string, audio []byte) error {
	payload := struct {
		Text  string `json:"text"`
		Audio []byte `json:"audio,omitempty"`
	}{Text: text, Audio: audio}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(fmt.Sprintf(subjectAnnouncements, sessionID), data)
}

// Conn exposes the underlying connection for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect creates a plain NATS connection.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
