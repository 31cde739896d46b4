package domain

import "errors"

// Error taxonomy for the external boundaries. Transport failures are
// wrapped separately by the adapters so callers can distinguish "the
// provider answered but had no result" from "the provider was unreachable".
var (
	// ErrResolution means a place query resolved to no coordinate.
	ErrResolution = errors.New("place resolution: no coordinate for query")

	// ErrDiscovery means the discovery provider returned an unparseable payload.
	ErrDiscovery = errors.New("discovery: malformed provider payload")

	// ErrRoute means no path was found between origin and destination.
	ErrRoute = errors.New("routing: no route found")

	// ErrSpeech means speech synthesis or delivery failed. Always absorbed
	// locally; it must never fail the operation that triggered the announcement.
	ErrSpeech = errors.New("speech: synthesis failed")

	// ErrStream means the location stream is unavailable or was denied.
	ErrStream = errors.New("location stream unavailable")
)

// Session-level errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTargetNotFound  = errors.New("target not found in current discovery")
	ErrInvalidStatus   = errors.New("invalid point status")
	ErrInvalidQuery    = errors.New("search query must not be empty")
)
