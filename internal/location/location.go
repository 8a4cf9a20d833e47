package location

import (
	"fmt"
	"time"
)

// Building tags a location with the building it belongs to.
type Building string

const (
	BuildingNone Building = ""
	BuildingWest Building = "West Building"
	BuildingEast Building = "East Building"
)

// ParseBuilding accepts the display names plus the short west/east forms.
func ParseBuilding(s string) (Building, error) {
	switch s {
	case "", "none":
		return BuildingNone, nil
	case string(BuildingWest), "west", "West":
		return BuildingWest, nil
	case string(BuildingEast), "east", "East":
		return BuildingEast, nil
	}
	return BuildingNone, fmt.Errorf("unknown building %q", s)
}

// Location is a patrol point with a QR code bound to it at creation.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Building  Building  `json:"building"`
	QRPayload string    `json:"qr_payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Known is false for schedule rows whose location has been deleted.
	Known bool `json:"known"`
}

// Unknown stands in for a location id that no longer resolves.
func Unknown(id string) Location {
	return Location{ID: id}
}
