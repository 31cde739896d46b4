package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/pkg/geospatial"
	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// SessionDeps collects the collaborators of the session service. Any of
// them except Discovery and Routes may be nil; missing collaborators
// degrade the feature they serve, never the session itself.
type SessionDeps struct {
	Discovery ports.DiscoveryClient
	Routes    ports.RouteClient
	Cache     ports.CacheService
	Tracks    ports.TrackRepository
	Places    ports.PlaceRepository
	Events    ports.EventPublisher
	Announcer ports.Announcer
	Stream    ports.LocationStream
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// SessionOptions tunes the state machine.
type SessionOptions struct {
	CachePrecision     int
	DisplacementMeters float64
	ArrivalMeters      float64
	CoverMeters        float64
	// FollowRouteOnStart makes a successful target selection also enable
	// tracking. The two historical variants of this application disagreed
	// on the behavior, so it is an explicit policy here.
	FollowRouteOnStart bool
}

func (o *SessionOptions) defaults() {
	if o.DisplacementMeters <= 0 {
		o.DisplacementMeters = 15
	}
	if o.ArrivalMeters <= 0 {
		o.ArrivalMeters = 40
	}
	if o.CoverMeters <= 0 {
		o.CoverMeters = 250
	}
}

// SessionService owns all navigation and discovery sessions. Each session
// aggregate is guarded by its own mutex so concurrent operations on one
// session serialize while different sessions stay independent. Responses
// of superseded discovery/route calls are discarded via per-operation
// sequence numbers, so only the most recently issued call ever mutates
// session state.
type SessionService struct {
	discovery ports.DiscoveryClient
	routes    ports.RouteClient
	cache     *GeoCache
	tracks    ports.TrackRepository
	places    ports.PlaceRepository
	events    ports.EventPublisher
	announcer ports.Announcer
	stream    ports.LocationStream
	opts      SessionOptions
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu        sync.Mutex
	session   domain.Session
	recorder  *TrackRecorder
	sub       ports.Subscription
	searchSeq uint64
	routeSeq  uint64
}

// NewSessionService creates the session service.
func NewSessionService(deps SessionDeps, opts SessionOptions) *SessionService {
	opts.defaults()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		discovery: deps.Discovery,
		routes:    deps.Routes,
		cache:     NewGeoCache(deps.Cache, opts.CachePrecision),
		tracks:    deps.Tracks,
		places:    deps.Places,
		events:    deps.Events,
		announcer: deps.Announcer,
		stream:    deps.Stream,
		opts:      opts,
		now:       now,
		sessions:  make(map[string]*sessionState),
	}
}

// CreateSession starts a new idle session and returns its snapshot.
func (s *SessionService) CreateSession(ctx context.Context) domain.Session {
	st := &sessionState{
		session: domain.Session{
			ID:               uuid.NewString(),
			State:            domain.StateIdle,
			PointsOfInterest: []domain.PointOfInterest{},
			Districts:        []domain.District{},
			CreatedAt:        s.now(),
		},
		recorder: NewTrackRecorder(s.tracks, s.opts.DisplacementMeters),
	}

	s.mu.Lock()
	s.sessions[st.session.ID] = st
	s.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return cloneSession(st.session)
}

// Snapshot returns a copy of the session aggregate for reads.
func (s *SessionService) Snapshot(sessionID string) (domain.Session, error) {
	st, err := s.state(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneSession(st.session), nil
}

// EndSession removes the session, releases its location subscription and
// clears its persisted track and discovery snapshot.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	st.mu.Lock()
	s.unsubscribeLocked(st)
	st.mu.Unlock()

	st.recorder.Reset(ctx, sessionID)
	if s.places != nil {
		if err := s.places.DeleteBySession(ctx, sessionID); err != nil {
			slog.Warn("discovery snapshot clear failed", "session_id", sessionID, "error", err)
		}
	}

	metrics.ActiveSessions.Dec()
	s.publish(ctx, domain.SessionEvent{Type: domain.EventSessionEnded, SessionID: sessionID, At: s.now()})
	return nil
}

// Search resolves a place query and replaces the session's discovery with
// the result. On any failure the prior discovery stays on screen and the
// error carries the boundary sentinel for the caller to classify. When a
// newer search was issued while this one was in flight, the late response
// is dropped without touching state.
func (s *SessionService) Search(ctx context.Context, sessionID, query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.ErrInvalidQuery
	}
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.searchSeq++
	seq := st.searchSeq
	st.session.Loading = true
	st.mu.Unlock()

	// Loading must drop on every path, but only when no newer search has
	// taken over the flag.
	defer func() {
		st.mu.Lock()
		if seq == st.searchSeq {
			st.session.Loading = false
		}
		st.mu.Unlock()
	}()

	coord, err := s.resolvePlace(ctx, query)
	if err != nil {
		return err
	}

	disc, err := s.discoverAround(ctx, coord, query)
	if err != nil {
		return err
	}

	pois, districts := seedEntities(disc)

	st.mu.Lock()
	if seq != st.searchSeq {
		st.mu.Unlock()
		slog.Debug("superseded discovery dropped", "session_id", sessionID, "query", query)
		return nil
	}
	st.session.PointsOfInterest = pois
	st.session.Districts = districts
	st.session.CityLabel = disc.CityName
	st.session.CityPopulationLabel = disc.CityPopulation
	focus := coord
	st.session.MapFocus = &focus
	city := coord
	st.session.CityCoordinate = &city
	invalidateStaleRoute(&st.session)
	st.mu.Unlock()

	if s.places != nil {
		if err := s.places.ReplaceForSession(ctx, sessionID, pois, districts); err != nil {
			slog.Warn("discovery snapshot persist failed", "session_id", sessionID, "error", err)
		}
	}

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventDiscoveryApplied,
		SessionID: sessionID,
		At:        s.now(),
		Data: map[string]any{
			"city":      disc.CityName,
			"points":    len(pois),
			"districts": len(districts),
		},
	})
	s.announce(ctx, sessionID, fmt.Sprintf("Found %d places and %d districts around %s.", len(pois), len(districts), disc.CityName))
	return nil
}

// SelectTarget computes a route from the current location to the given
// point of interest, district, or the city pseudo-target. Without a known
// current location it only moves the map focus. Route failures keep the
// prior route and are retryable by calling SelectTarget again.
func (s *SessionService) SelectTarget(ctx context.Context, sessionID, targetID string) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	target, ok := findTarget(&st.session, targetID)
	if !ok {
		st.mu.Unlock()
		return domain.ErrTargetNotFound
	}
	if st.session.CurrentLocation == nil {
		focus := target.coord
		st.session.MapFocus = &focus
		st.session.SelectedTargetID = targetID
		st.mu.Unlock()
		s.publish(ctx, domain.SessionEvent{
			Type:      domain.EventTargetSelected,
			SessionID: sessionID,
			At:        s.now(),
			Data:      map[string]any{"target_id": targetID},
		})
		return nil
	}

	origin := *st.session.CurrentLocation
	st.routeSeq++
	seq := st.routeSeq
	st.session.Loading = true
	st.mu.Unlock()

	defer func() {
		st.mu.Lock()
		if seq == st.routeSeq {
			st.session.Loading = false
		}
		st.mu.Unlock()
	}()

	frag, err := s.routes.Route(ctx, origin, target.coord)
	if err != nil {
		metrics.RouteCalls.WithLabelValues("error").Inc()
		return fmt.Errorf("route to %q: %w", target.name, err)
	}
	metrics.RouteCalls.WithLabelValues("ok").Inc()

	st.mu.Lock()
	if seq != st.routeSeq {
		st.mu.Unlock()
		slog.Debug("superseded route dropped", "session_id", sessionID, "target_id", targetID)
		return nil
	}
	// The discovery may have been replaced while the route was in flight.
	if _, stillThere := findTarget(&st.session, targetID); !stillThere {
		st.mu.Unlock()
		return nil
	}
	st.session.ActiveRoute = &domain.ActiveRoute{
		TargetRef:        targetID,
		DistanceText:     frag.DistanceText,
		DurationText:     frag.DurationText,
		DistanceMeters:   frag.DistanceMeters,
		DurationSeconds:  frag.DurationSeconds,
		EstimatedArrival: frag.EstimatedArrival,
		Geometry:         frag.Geometry,
	}
	st.session.SelectedTargetID = targetID
	focus := target.coord
	st.session.MapFocus = &focus
	if s.opts.FollowRouteOnStart && !st.session.TrackingEnabled {
		s.startTrackingLocked(ctx, st)
	}
	if st.session.TrackingEnabled {
		st.session.State = domain.StateTracking
	} else {
		st.session.State = domain.StatePreviewing
	}
	st.mu.Unlock()

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventRouteSet,
		SessionID: sessionID,
		At:        s.now(),
		Data: map[string]any{
			"target_id": targetID,
			"distance":  frag.DistanceText,
			"duration":  frag.DurationText,
		},
	})
	s.announce(ctx, sessionID, fmt.Sprintf("Route to %s: %s, about %s.", target.name, frag.DistanceText, frag.DurationText))
	return nil
}

// StartTracking enables live tracking. The previously persisted track is
// cleared so each tracking run starts fresh. Starting without a target is
// valid: it is pure position logging.
func (s *SessionService) StartTracking(ctx context.Context, sessionID string) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	s.startTrackingLocked(ctx, st)
	st.mu.Unlock()

	s.publish(ctx, domain.SessionEvent{Type: domain.EventTrackingStarted, SessionID: sessionID, At: s.now()})
	s.announce(ctx, sessionID, "Tracking started.")
	return nil
}

// StopTracking disables live tracking and releases the location stream
// subscription. The recorded track is preserved until the next start.
func (s *SessionService) StopTracking(ctx context.Context, sessionID string) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.session.TrackingEnabled = false
	s.unsubscribeLocked(st)
	if st.session.ActiveRoute != nil {
		st.session.State = domain.StatePreviewing
	} else {
		st.session.State = domain.StateIdle
	}
	st.mu.Unlock()

	s.publish(ctx, domain.SessionEvent{Type: domain.EventTrackingStopped, SessionID: sessionID, At: s.now()})
	s.announce(ctx, sessionID, "Tracking stopped.")
	return nil
}

// ReportPointStatus overwrites a point's status. Re-applying a terminal
// status is fine (last write wins); an unknown id is a silent no-op so
// that confirmations racing a discovery replacement cannot fail.
func (s *SessionService) ReportPointStatus(ctx context.Context, sessionID, pointID string, status domain.PointStatus) error {
	if status != domain.StatusSuccess && status != domain.StatusFailure {
		return domain.ErrInvalidStatus
	}
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	applied := false
	st.mu.Lock()
	for i := range st.session.PointsOfInterest {
		if st.session.PointsOfInterest[i].ID == pointID {
			st.session.PointsOfInterest[i].Status = status
			applied = true
			break
		}
	}
	st.mu.Unlock()

	if applied {
		s.publish(ctx, domain.SessionEvent{
			Type:      domain.EventPointStatus,
			SessionID: sessionID,
			At:        s.now(),
			Data:      map[string]any{"point_id": pointID, "status": string(status)},
		})
	}
	return nil
}

// ClearRoute drops the active route. When the follow policy ties tracking
// to route presence, follow-tracking stops too; the persisted track is
// never discarded here.
func (s *SessionService) ClearRoute(ctx context.Context, sessionID string) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if st.session.ActiveRoute == nil && st.session.SelectedTargetID == "" {
		st.mu.Unlock()
		return nil
	}
	st.session.ActiveRoute = nil
	st.session.SelectedTargetID = ""
	if s.opts.FollowRouteOnStart && st.session.TrackingEnabled {
		st.session.TrackingEnabled = false
		s.unsubscribeLocked(st)
	}
	if st.session.TrackingEnabled {
		st.session.State = domain.StateTracking
	} else {
		st.session.State = domain.StateIdle
	}
	st.mu.Unlock()

	s.publish(ctx, domain.SessionEvent{Type: domain.EventRouteCleared, SessionID: sessionID, At: s.now()})
	return nil
}

// UpdateLocation ingests one raw position sample. It always refreshes the
// current location and heading; the track recorder runs only while
// tracking is enabled. It also reconciles route progress (arrival) and
// district coverage. Pure state update: no suspension, no failure beyond
// an unknown session.
func (s *SessionService) UpdateLocation(ctx context.Context, sessionID string, coord domain.Coordinate) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}
	if !coord.Valid() {
		slog.Debug("non-finite location sample ignored", "session_id", sessionID)
		return nil
	}
	metrics.LocationSamples.Inc()

	var (
		arrived   bool
		arrivedAt string
		covered   []string
		heading   float64
	)

	st.mu.Lock()
	prev := st.session.CurrentLocation
	c := coord
	st.session.CurrentLocation = &c
	if prev != nil {
		st.session.Heading = geospatial.Bearing(prev.Lat, prev.Lng, c.Lat, c.Lng)
	}
	heading = st.session.Heading

	if st.session.TrackingEnabled {
		st.recorder.Observe(ctx, sessionID, c, s.now())
	}

	for i := range st.session.Districts {
		d := &st.session.Districts[i]
		if d.Covered {
			continue
		}
		if geospatial.Haversine(c.Lat, c.Lng, d.Coordinate.Lat, d.Coordinate.Lng) <= s.opts.CoverMeters {
			d.Covered = true
			covered = append(covered, d.Name)
		}
	}

	if st.session.TrackingEnabled && st.session.ActiveRoute != nil {
		if target, ok := findTarget(&st.session, st.session.ActiveRoute.TargetRef); ok {
			if geospatial.Haversine(c.Lat, c.Lng, target.coord.Lat, target.coord.Lng) <= s.opts.ArrivalMeters {
				arrived = true
				arrivedAt = target.name
				st.session.ActiveRoute = nil
				st.session.SelectedTargetID = ""
				st.session.State = domain.StateArrived
			}
		}
	}
	st.mu.Unlock()

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventLocationUpdated,
		SessionID: sessionID,
		At:        s.now(),
		Data:      map[string]any{"lat": c.Lat, "lng": c.Lng, "heading": heading},
	})
	for _, name := range covered {
		s.announce(ctx, sessionID, fmt.Sprintf("Entering %s.", name))
	}
	if arrived {
		s.publish(ctx, domain.SessionEvent{
			Type:      domain.EventArrived,
			SessionID: sessionID,
			At:        s.now(),
			Data:      map[string]any{"target": arrivedAt},
		})
		s.announce(ctx, sessionID, fmt.Sprintf("You have arrived at %s.", arrivedAt))
	}
	return nil
}

// ----- internals -----

func (s *SessionService) state(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return st, nil
}

func (s *SessionService) resolvePlace(ctx context.Context, query string) (domain.Coordinate, error) {
	key := s.cache.QueryKey("geocode", query)
	var coord domain.Coordinate
	if s.cache.Get(ctx, "resolve_place", key, &coord) {
		return coord, nil
	}

	coord, err := s.discovery.ResolvePlace(ctx, query)
	if err != nil {
		metrics.DiscoveryCalls.WithLabelValues("resolve_place", "error").Inc()
		return domain.Coordinate{}, fmt.Errorf("resolve %q: %w", query, err)
	}
	metrics.DiscoveryCalls.WithLabelValues("resolve_place", "ok").Inc()

	s.cache.Put(ctx, key, coord)
	return coord, nil
}

func (s *SessionService) discoverAround(ctx context.Context, coord domain.Coordinate, label string) (domain.Discovery, error) {
	key := s.cache.CoordKey("discovery", coord)
	var disc domain.Discovery
	if s.cache.Get(ctx, "discover", key, &disc) {
		return disc, nil
	}

	disc, err := s.discovery.Discover(ctx, coord, label)
	if err != nil {
		metrics.DiscoveryCalls.WithLabelValues("discover", "error").Inc()
		return domain.Discovery{}, fmt.Errorf("discover around %.4f,%.4f: %w", coord.Lat, coord.Lng, err)
	}
	metrics.DiscoveryCalls.WithLabelValues("discover", "ok").Inc()

	// Empty payloads are not cached: a transient provider hiccup must not
	// poison this location for the rest of the process.
	if !disc.Empty() {
		s.cache.Put(ctx, key, disc)
	}
	return disc, nil
}

// startTrackingLocked enables tracking, clears the previous track and
// attaches the live location stream. Caller holds st.mu.
func (s *SessionService) startTrackingLocked(ctx context.Context, st *sessionState) {
	st.recorder.Reset(ctx, st.session.ID)
	st.session.TrackingEnabled = true
	st.session.State = domain.StateTracking

	if s.stream != nil && st.sub == nil {
		sessionID := st.session.ID
		sub, err := s.stream.Subscribe(sessionID, func(c domain.Coordinate) {
			// Stream callbacks outlive the request that started tracking.
			_ = s.UpdateLocation(context.Background(), sessionID, c)
		})
		if err != nil {
			// Stream errors degrade tracking to manual updates only.
			slog.Warn("location stream subscribe failed", "session_id", sessionID, "error", err)
		} else {
			st.sub = sub
		}
	}
}

// unsubscribeLocked releases the location stream subscription if any.
// Caller holds st.mu.
func (s *SessionService) unsubscribeLocked(st *sessionState) {
	if st.sub == nil {
		return
	}
	if err := st.sub.Unsubscribe(); err != nil {
		slog.Warn("location stream unsubscribe failed", "session_id", st.session.ID, "error", err)
	}
	st.sub = nil
}

func (s *SessionService) publish(ctx context.Context, event domain.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSessionEvent(ctx, event); err != nil {
		slog.Warn("session event publish failed", "session_id", event.SessionID, "type", event.Type, "error", err)
	}
}

func (s *SessionService) announce(ctx context.Context, sessionID, text string) {
	if s.announcer == nil {
		return
	}
	s.announcer.Announce(ctx, sessionID, text)
}

type targetRef struct {
	name  string
	coord domain.Coordinate
}

// findTarget resolves a target id against the current discovery. The city
// pseudo-target is valid whenever a discovery is loaded.
func findTarget(sess *domain.Session, targetID string) (targetRef, bool) {
	if targetID == domain.CityTargetID {
		if sess.CityCoordinate == nil {
			return targetRef{}, false
		}
		name := sess.CityLabel
		if name == "" {
			name = "the city"
		}
		return targetRef{name: name, coord: *sess.CityCoordinate}, true
	}
	for i := range sess.PointsOfInterest {
		if sess.PointsOfInterest[i].ID == targetID {
			return targetRef{name: sess.PointsOfInterest[i].Name, coord: sess.PointsOfInterest[i].Coordinate}, true
		}
	}
	for i := range sess.Districts {
		if sess.Districts[i].ID == targetID {
			return targetRef{name: sess.Districts[i].Name, coord: sess.Districts[i].Coordinate}, true
		}
	}
	return targetRef{}, false
}

// invalidateStaleRoute clears a route whose target vanished with the last
// discovery replacement.
func invalidateStaleRoute(sess *domain.Session) {
	if sess.ActiveRoute == nil {
		return
	}
	if _, ok := findTarget(sess, sess.ActiveRoute.TargetRef); ok {
		return
	}
	sess.ActiveRoute = nil
	sess.SelectedTargetID = ""
	if sess.State == domain.StatePreviewing {
		sess.State = domain.StateIdle
	}
}

// seedEntities assigns identity and default statuses to raw discovery seeds.
func seedEntities(disc domain.Discovery) ([]domain.PointOfInterest, []domain.District) {
	pois := make([]domain.PointOfInterest, 0, len(disc.Businesses))
	for _, b := range disc.Businesses {
		category := domain.CategoryBar
		if b.Category != "" {
			category = domain.ParseCategory(b.Category)
		}
		pois = append(pois, domain.PointOfInterest{
			ID:         uuid.NewString(),
			Name:       b.Name,
			Category:   category,
			Coordinate: domain.Coordinate{Lat: b.Lat, Lng: b.Lng},
			Address:    b.Address,
			Status:     domain.StatusPending,
		})
	}

	districts := make([]domain.District, 0, len(disc.Districts))
	for _, d := range disc.Districts {
		districts = append(districts, domain.District{
			ID:          uuid.NewString(),
			Name:        d.Name,
			Description: d.Description,
			Coordinate:  domain.Coordinate{Lat: d.Lat, Lng: d.Lng},
			Covered:     false,
			Population:  d.Population,
		})
	}
	return pois, districts
}

func cloneSession(sess domain.Session) domain.Session {
	out := sess
	out.PointsOfInterest = append([]domain.PointOfInterest(nil), sess.PointsOfInterest...)
	out.Districts = append([]domain.District(nil), sess.Districts...)
	if sess.CurrentLocation != nil {
		c := *sess.CurrentLocation
		out.CurrentLocation = &c
	}
	if sess.MapFocus != nil {
		c := *sess.MapFocus
		out.MapFocus = &c
	}
	if sess.CityCoordinate != nil {
		c := *sess.CityCoordinate
		out.CityCoordinate = &c
	}
	if sess.ActiveRoute != nil {
		r := *sess.ActiveRoute
		r.Geometry = append([]domain.Coordinate(nil), sess.ActiveRoute.Geometry...)
		out.ActiveRoute = &r
	}
	return out
}
