package domain

import (
	"time"
)

// Category classifies a point of interest.
type Category string

const (
	CategoryBar      Category = "bar"
	CategorySalon    Category = "salon"
	CategoryRental   Category = "rental"
	CategoryGeneric  Category = "generic"
	CategoryDistrict Category = "district"
)

// ParseCategory maps free-form provider categories onto the closed set.
// Anything unrecognised degrades to CategoryGeneric.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryBar, CategorySalon, CategoryRental, CategoryDistrict:
		return Category(s)
	default:
		return CategoryGeneric
	}
}

// PointStatus tracks user confirmation of a point of interest.
type PointStatus string

const (
	StatusPending PointStatus = "pending"
	StatusSuccess PointStatus = "success"
	StatusFailure PointStatus = "failure"
)

// Valid reports whether s is one of the known statuses.
func (s PointStatus) Valid() bool {
	return s == StatusPending || s == StatusSuccess || s == StatusFailure
}

// PointOfInterest is a discovered place the user can navigate to and
// confirm or fail. Identity is assigned when a discovery is applied and
// is stable until the next discovery replaces the set wholesale.
type PointOfInterest struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Category   Category    `json:"category"`
	Coordinate Coordinate  `json:"coordinate"`
	Address    string      `json:"address,omitempty"`
	Status     PointStatus `json:"status"`
}

// District is an administrative area returned alongside points of interest.
type District struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Coordinate  Coordinate `json:"coordinate"`
	Covered     bool       `json:"covered"`
	Population  string     `json:"population,omitempty"`
}

// TrackPoint is one recorded position of the live track. Append-only;
// timestamps are strictly ascending within a session.
type TrackPoint struct {
	At         time.Time  `json:"at"`
	Coordinate Coordinate `json:"coordinate"`
}

// ActiveRoute is the street route currently shown for the selected target.
// TargetRef is a weak reference: when a new discovery replaces the target
// set, a route whose target no longer exists is cleared, not recomputed.
type ActiveRoute struct {
	TargetRef        string       `json:"target_ref"`
	DistanceText     string       `json:"distance_text"`
	DurationText     string       `json:"duration_text"`
	DistanceMeters   float64      `json:"distance_meters"`
	DurationSeconds  float64      `json:"duration_seconds"`
	EstimatedArrival time.Time    `json:"estimated_arrival"`
	Geometry         []Coordinate `json:"geometry"`
}

// SessionState names the phase of the navigation state machine.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StatePreviewing SessionState = "previewing"
	StateTracking   SessionState = "tracking"
	StateArrived    SessionState = "arrived"
)

// CityTargetID is the pseudo-target id for routing to the discovered city
// itself rather than a specific point of interest or district.
const CityTargetID = "city"

// Session is the aggregate root of one navigation and discovery session.
// It is owned exclusively by the session service; everything outside reads
// snapshots and writes through the service API.
type Session struct {
	ID                  string            `json:"id"`
	State               SessionState      `json:"state"`
	CurrentLocation     *Coordinate       `json:"current_location,omitempty"`
	Heading             float64           `json:"heading"`
	MapFocus            *Coordinate       `json:"map_focus,omitempty"`
	TrackingEnabled     bool              `json:"tracking_enabled"`
	ActiveRoute         *ActiveRoute      `json:"active_route,omitempty"`
	SelectedTargetID    string            `json:"selected_target_id,omitempty"`
	PointsOfInterest    []PointOfInterest `json:"points_of_interest"`
	Districts           []District        `json:"districts"`
	CityLabel           string            `json:"city_label,omitempty"`
	CityPopulationLabel string            `json:"city_population_label,omitempty"`
	CityCoordinate      *Coordinate       `json:"city_coordinate,omitempty"`
	Loading             bool              `json:"loading"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Discovery is the structured bundle a discovery provider returns for a
// coordinate. Seeds carry raw provider data only; ids and default statuses
// are assigned by the session service when the discovery is applied.
type Discovery struct {
	CityName       string         `json:"cityName"`
	CityPopulation string         `json:"cityPopulation"`
	Businesses     []BusinessSeed `json:"bars"`
	Districts      []DistrictSeed `json:"districts"`
}

// Empty reports whether the discovery carries no meaningful field.
// Empty discoveries are not cached so a transient provider hiccup cannot
// poison a location for the rest of the process.
func (d Discovery) Empty() bool {
	return d.CityName == "" && len(d.Businesses) == 0 && len(d.Districts) == 0
}

// BusinessSeed is a raw point-of-interest candidate from the provider.
type BusinessSeed struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Address  string  `json:"address,omitempty"`
	Category string  `json:"category,omitempty"`
}

// DistrictSeed is a raw district candidate from the provider.
type DistrictSeed struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	Population  string  `json:"population,omitempty"`
}

// RouteFragment is what a routing provider returns for an origin and a
// destination. Human-readable texts and the arrival estimate are fixed at
// the moment the provider responded, not recomputed at display time.
type RouteFragment struct {
	Geometry         []Coordinate `json:"geometry"`
	DistanceMeters   float64      `json:"distance_meters"`
	DurationSeconds  float64      `json:"duration_seconds"`
	DistanceText     string       `json:"distance_text"`
	DurationText     string       `json:"duration_text"`
	EstimatedArrival time.Time    `json:"estimated_arrival"`
}

// SessionEvent is published on every applied session mutation so the
// presentation layer can re-render without polling.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// Session event types.
const (
	EventDiscoveryApplied = "discovery_applied"
	EventTargetSelected   = "target_selected"
	EventRouteSet         = "route_set"
	EventRouteCleared     = "route_cleared"
	EventTrackingStarted  = "tracking_started"
	EventTrackingStopped  = "tracking_stopped"
	EventLocationUpdated  = "location_updated"
	EventPointStatus      = "point_status"
	EventArrived          = "arrived"
	EventSessionEnded     = "session_ended"
)
