package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/osoko/wayfind/internal/adapters/nats"
	"github.com/osoko/wayfind/internal/pkg/config"
	"github.com/osoko/wayfind/internal/pkg/logging"
)

// feeder replays a recorded list of position samples onto a session's
// location subject. Useful for demos and for driving the tracking path
// without a real device.

type sample struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func main() {
	var (
		sessionID = flag.String("session", "", "session id to feed")
		file      = flag.String("file", "samples.json", "JSON file with [{\"lat\":..,\"lng\":..}, ...]")
		interval  = flag.Duration("interval", 2*time.Second, "delay between samples")
		loop      = flag.Bool("loop", false, "restart from the beginning when done")
	)
	flag.Parse()

	if *sessionID == "" {
		log.Fatal("usage: feeder -session <id> [-file samples.json] [-interval 2s] [-loop]")
	}

	cfg, err := config.Load("wayfind-feeder")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("wayfind-feeder", "info", "text")

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	var samples []sample
	if err := json.Unmarshal(data, &samples); err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}
	if len(samples) == 0 {
		log.Fatalf("%s contains no samples", *file)
	}

	conn, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer conn.Drain()

	subject := fmt.Sprintf("nav.location.%s", *sessionID)
	slog.Info("feeding location samples", "subject", subject, "count", len(samples), "interval", interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-quit:
			slog.Info("feeder stopped", "sent", i)
			return
		case <-ticker.C:
			if i >= len(samples) {
				if !*loop {
					slog.Info("all samples sent", "sent", i)
					return
				}
				i = 0
			}
			payload, _ := json.Marshal(samples[i])
			if err := conn.Publish(subject, payload); err != nil {
				slog.Warn("publish failed", "error", err)
			}
			i++
		}
	}
}
