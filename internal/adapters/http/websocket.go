package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// WebSocketHandler relays a session's NATS traffic over one socket. The
// server pushes session events and announcements down; the client may push
// raw location samples up, which are re-published on the session's
// location subject so the location stream treats them like any other
// device source.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		if sessionID == "" {
			return
		}
		if _, err := deps.Sessions.Snapshot(sessionID); err != nil {
			_ = c.WriteJSON(map[string]string{"error": "session not found"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "session_id", sessionID, "remote", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		var subs []*nats.Subscription
		if deps.NATS != nil {
			subjects := []string{
				fmt.Sprintf("nav.session.%s.events", sessionID),
				fmt.Sprintf("nav.announce.%s", sessionID),
			}
			for _, subject := range subjects {
				sub, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					slog.Warn("ws subscribe failed", "subject", subject, "error", err)
					continue
				}
				subs = append(subs, sub)
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Client messages are raw location samples.
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var sample struct {
				Lat *float64 `json:"lat"`
				Lng *float64 `json:"lng"`
			}
			if err := json.Unmarshal(msg, &sample); err != nil || sample.Lat == nil || sample.Lng == nil {
				_ = writeJSON(map[string]string{"error": "expected {\"lat\": <number>, \"lng\": <number>}"})
				continue
			}

			if deps.NATS != nil {
				if err := deps.NATS.Publish(fmt.Sprintf("nav.location.%s", sessionID), msg); err != nil {
					_ = writeJSON(map[string]string{"error": "location publish failed"})
				}
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "session_id", sessionID)
	}
}
