package models

// Destination is where a recorded event ended up
type Destination string

const (
	DestinationRemote Destination = "remote"
	DestinationLocal  Destination = "local"
	DestinationLost   Destination = "lost"
	DestinationQueued Destination = "queued"
)

// RecordResult reports the path a record call took. Err carries the last
// error seen along the way, even when a fallback succeeded.
type RecordResult struct {
	Destination Destination
	Err         error
}
