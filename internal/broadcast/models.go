// Package broadcast composes emergency-alert broadcasts from area
// selections and manages their lifecycle records.
package broadcast

import (
	"errors"
	"time"
)

// Repository and service errors.
var (
	ErrBroadcastNotFound = errors.New("broadcast not found")
	ErrNotEditable       = errors.New("broadcast is no longer editable")
	ErrInvalidTransition = errors.New("invalid broadcast status transition")
	ErrEmptySelection    = errors.New("broadcast selection is empty")
)

// Status is the lifecycle state of a broadcast.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending-approval"
	StatusBroadcasting    Status = "broadcasting"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusBroadcasting, StatusRejected, StatusDraft},
	StatusBroadcasting:    {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the lifecycle permits moving from
// this status to the target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Editable reports whether the selection and content may still change.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusPendingApproval
}

// Broadcast is the authoritative record of one alert. It owns a copy
// of its simplified polygons, so it stays renderable even when the
// area catalogue moves to a newer version.
type Broadcast struct {
	ID             string
	Reference      string
	Content        string
	Status         Status
	AreaIDs        []string
	AreaNames      []string
	AggregateNames []string

	// SimplePolygons holds [lat, long] rings, the broadcastable copy.
	SimplePolygons [][][]float64

	// CustomDiscs records the parameters of each custom area in the
	// selection, so the selection can be rebuilt when areas are added
	// or removed later.
	CustomDiscs []CustomDisc

	// ForceOverride is passed through to the sending network verbatim.
	ForceOverride bool

	// Drifted is set on read-back when some of AreaIDs no longer exist
	// in the catalogue; the record then renders as fully custom from
	// the stored polygon copy. Not persisted.
	Drifted bool

	CountOfPhones       float64
	CountOfPhonesLikely float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomDisc is the stored form of one custom area: enough to rebuild
// the disc without revalidating it. Lat and Lng are the WGS84 centre.
type CustomDisc struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radiusKm"`
}

// CatalogueAreaIDs returns the subset of AreaIDs that refer to
// catalogue areas rather than custom discs.
func (b *Broadcast) CatalogueAreaIDs() []string {
	if len(b.CustomDiscs) == 0 {
		return b.AreaIDs
	}
	custom := make(map[string]struct{}, len(b.CustomDiscs))
	for _, d := range b.CustomDiscs {
		custom[d.ID] = struct{}{}
	}
	ids := make([]string, 0, len(b.AreaIDs))
	for _, id := range b.AreaIDs {
		if _, ok := custom[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}
