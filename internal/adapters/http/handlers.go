package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/osoko/wayfind/internal/core/domain"
)

// CreateSessionHandler starts a new navigation session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := deps.Sessions.CreateSession(c.Context())
		return c.Status(201).JSON(sess)
	}
}

// GetSessionHandler returns the full session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Snapshot(c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(sess)
	}
}

// EndSessionHandler ends a session and drops its persisted state.
func EndSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.EndSession(c.Context(), c.Params("id")); err != nil {
			return domainError(c, err)
		}
		return c.SendStatus(204)
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// SearchHandler resolves a place query and applies the discovery to the
// session. Returns the updated snapshot.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		id := c.Params("id")
		if err := deps.Sessions.Search(c.UserContext(), id, req.Query); err != nil {
			return domainError(c, err)
		}

		sess, err := deps.Sessions.Snapshot(id)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(sess)
	}
}

type targetRequest struct {
	TargetID string `json:"target_id"`
}

// SelectTargetHandler routes from the current location to a point of
// interest, a district, or the city pseudo-target.
func SelectTargetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req targetRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.TargetID == "" {
			return errBadRequest(c, "target_id is required")
		}

		id := c.Params("id")
		if err := deps.Sessions.SelectTarget(c.UserContext(), id, req.TargetID); err != nil {
			return domainError(c, err)
		}

		sess, err := deps.Sessions.Snapshot(id)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(sess)
	}
}

// ClearRouteHandler drops the active route.
func ClearRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.ClearRoute(c.Context(), c.Params("id")); err != nil {
			return domainError(c, err)
		}
		return c.SendStatus(204)
	}
}

// StartTrackingHandler enables live tracking.
func StartTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Sessions.StartTracking(c.Context(), id); err != nil {
			return domainError(c, err)
		}
		sess, err := deps.Sessions.Snapshot(id)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(sess)
	}
}

// StopTrackingHandler disables live tracking, preserving the track.
func StopTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Sessions.StopTracking(c.Context(), id); err != nil {
			return domainError(c, err)
		}
		sess, err := deps.Sessions.Snapshot(id)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(sess)
	}
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocationHandler ingests one raw position sample, for clients that
// report over HTTP instead of the NATS location stream.
func UpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		id := c.Params("id")
		if err := deps.Sessions.UpdateLocation(c.Context(), id, domain.Coordinate{Lat: req.Lat, Lng: req.Lng}); err != nil {
			return domainError(c, err)
		}
		return c.SendStatus(202)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// PointStatusHandler records the user's verdict on a point of interest.
func PointStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		err := deps.Sessions.ReportPointStatus(c.Context(), c.Params("id"), c.Params("pointID"), domain.PointStatus(req.Status))
		if err != nil {
			return domainError(c, err)
		}
		return c.SendStatus(204)
	}
}

// TrackHandler returns the persisted track of a session, paginated.
func TrackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Tracks == nil {
			return errInternal(c, "track storage not available")
		}

		id := c.Params("id")
		if _, err := deps.Sessions.Snapshot(id); err != nil {
			return domainError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 500)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 2000 {
			limit = 500
		}

		total, err := deps.Tracks.Count(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		points, err := deps.Tracks.List(c.Context(), id, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if points == nil {
			points = []domain.TrackPoint{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: points, Pagination: pg})
	}
}
