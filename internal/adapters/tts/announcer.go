package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// Announcer implements ports.Announcer against an HTTP speech synthesis
// server. Announce returns immediately; synthesis and delivery run on
// their own goroutine and failures are absorbed. A broken speech backend
// degrades announcements to text-only, it never degrades navigation.
type Announcer struct {
	httpClient *http.Client
	baseURL    string
	voice      string
	enabled    bool
	events     ports.EventPublisher
}

// New creates an announcer. events may be nil, which reduces Announce to
// a log line.
func New(baseURL, voice string, enabled bool, timeout time.Duration, events ports.EventPublisher) *Announcer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Announcer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		voice:      voice,
		enabled:    enabled,
		events:     events,
	}
}

// Announce synthesizes and publishes one announcement without blocking
// the caller.
func (a *Announcer) Announce(ctx context.Context, sessionID, text string) {
	// The triggering request may complete long before synthesis does.
	ctx = context.WithoutCancel(ctx)
	go a.deliver(ctx, sessionID, text)
}

func (a *Announcer) deliver(ctx context.Context, sessionID, text string) {
	var audio []byte
	if a.enabled {
		var err error
		audio, err = a.synthesize(ctx, text)
		if err != nil {
			metrics.SpeechFailures.Inc()
			slog.Warn("speech synthesis failed", "session_id", sessionID, "error", err)
		}
	}

	if a.events == nil {
		slog.Info("announcement", "session_id", sessionID, "text", text)
		return
	}
	if err := a.events.PublishAnnouncement(ctx, sessionID, text, audio); err != nil {
		metrics.SpeechFailures.Inc()
		slog.Warn("announcement publish failed", "session_id", sessionID, "error", err)
	}
}

func (a *Announcer) synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"text":  text,
		"voice": a.voice,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: speech server status %d", domain.ErrSpeech, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
