// Package aggregate rolls heterogeneous broadcast selections up into
// the minimal list of administrative areas worth naming. A pile of
// wards becomes their local authority; a pile of local authorities
// becomes their county.
package aggregate

import (
	"context"
	"sort"

	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/population"
)

// Config wires an Aggregator.
type Config struct {
	// Store resolves parent counties during roll-up.
	Store *catalogue.Store

	// Counter expands custom areas to the wards they overlap.
	Counter *population.Counter
}

// Aggregator produces display lists for selections.
type Aggregator struct {
	store   *catalogue.Store
	counter *population.Counter
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{store: cfg.Store, counter: cfg.Counter}
}

// Selection is a mixed set of catalogued and custom areas.
type Selection struct {
	Areas  []*catalogue.Area
	Custom []*customarea.Area
}

// Names returns the aggregated display names for a selection, sorted.
// REPPIR sites carry their local authority as a suffix, since the site
// name alone rarely places them on a map.
func (g *Aggregator) Names(ctx context.Context, sel Selection) ([]string, error) {
	areas, err := g.Areas(ctx, sel)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(areas))
	for i, area := range areas {
		names[i] = area.DisplayName()
		if area.IsREPPIRSite() && area.ParentID != "" {
			parent, err := area.Parent()
			if err != nil {
				return nil, err
			}
			names[i] += ", " + parent.DisplayName()
		}
	}
	return names, nil
}

// Areas aggregates a selection:
//
//  1. custom areas expand to their overlapping wards,
//  2. wards roll up to their local authority,
//  3. local authorities cluster by county; a cluster of one keeps the
//     authority, four or more become the county, and two or three
//     become the county only when the selection holds anything else
//     (a selection confined to one county evidently cares about
//     sub-county detail),
//  4. countries, unitary authorities and police forces pass through,
//     each counting as a cluster of its own.
//
// The result is sorted by display name and deduplicated.
func (g *Aggregator) Areas(ctx context.Context, sel Selection) ([]*catalogue.Area, error) {
	members := make([]*catalogue.Area, 0, len(sel.Areas))
	members = append(members, sel.Areas...)
	for _, custom := range sel.Custom {
		wards, err := g.counter.OverlappingWards(ctx, custom.Polygons())
		if err != nil {
			return nil, err
		}
		members = append(members, wards...)
	}

	authorities := make(map[string]*catalogue.Area)
	passThrough := make(map[string]*catalogue.Area)
	for _, area := range members {
		switch {
		case area.IsElectoralWard():
			parent, err := area.Parent()
			if err != nil {
				return nil, err
			}
			authorities[parent.ID] = parent
		case area.IsLowerTierLocalAuthority():
			authorities[area.ID] = area
		default:
			passThrough[area.ID] = area
		}
	}

	clusters := make(map[string][]*catalogue.Area)
	for _, lad := range authorities {
		if lad.ParentID == "" {
			passThrough[lad.ID] = lad
			continue
		}
		clusters[lad.ParentID] = append(clusters[lad.ParentID], lad)
	}

	result := make(map[string]*catalogue.Area, len(passThrough))
	for id, area := range passThrough {
		result[id] = area
	}
	// Every pass-through area is a cluster of its own, so a couple of
	// authorities selected alongside anything else still roll up.
	soleCluster := len(clusters)+len(passThrough) == 1
	for countyID, cluster := range clusters {
		if len(cluster) == 1 || (len(cluster) <= 3 && soleCluster) {
			for _, lad := range cluster {
				result[lad.ID] = lad
			}
			continue
		}
		county, err := g.store.GetArea(countyID)
		if err != nil {
			return nil, err
		}
		result[county.ID] = county
	}

	sorted := make([]*catalogue.Area, 0, len(result))
	for _, area := range result {
		sorted = append(sorted, area)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DisplayName() != sorted[j].DisplayName() {
			return sorted[i].DisplayName() < sorted[j].DisplayName()
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted, nil
}
