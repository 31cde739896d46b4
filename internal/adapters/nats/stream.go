package natsadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/ports"
)

// LocationStream implements ports.LocationStream on a NATS connection.
// Devices publish raw position samples on nav.location.<session-id> as
// JSON {"lat": ..., "lng": ...}; malformed samples are dropped with a log
// line, never surfaced to the session.
type LocationStream struct {
	conn *nats.Conn
}

// NewLocationStream wraps an existing connection.
func NewLocationStream(conn *nats.Conn) *LocationStream {
	return &LocationStream{conn: conn}
}

// Subscribe attaches a handler to a session's location subject.
func (s *LocationStream) Subscribe(sessionID string, handler func(domain.Coordinate)) (ports.Subscription, error) {
	subject := fmt.Sprintf(subjectLocation, sessionID)
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		var sample struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			slog.Warn("malformed location sample dropped", "subject", msg.Subject, "error", err)
			return
		}
		handler(domain.Coordinate{Lat: sample.Lat, Lng: sample.Lng})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", domain.ErrStream, subject, err)
	}
	return subscription{sub}, nil
}

type subscription struct {
	sub *nats.Subscription
}

func (s subscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
