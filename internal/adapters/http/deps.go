package http

import (
	"github.com/nats-io/nats.go"

	"github.com/osoko/wayfind/internal/adapters/postgres"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Tracks   ports.TrackRepository
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    ports.CacheService
}
