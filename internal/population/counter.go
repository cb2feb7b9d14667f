package population

import (
	"context"

	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/geometry"
)

// CounterConfig holds the dependencies of a Counter.
type CounterConfig struct {
	// Store is the area catalogue.
	Store *catalogue.Store

	// Index is the ward-level spatial index built from the catalogue.
	Index *catalogue.Index
}

// Counter computes phone counts for catalogue areas and arbitrary
// polygons. Counts for polygons are weighted by the fraction of each
// overlapping ward covered.
type Counter struct {
	store *catalogue.Store
	index *catalogue.Index
}

// NewCounter creates a Counter over the given catalogue and index.
func NewCounter(cfg CounterConfig) *Counter {
	return &Counter{store: cfg.Store, index: cfg.Index}
}

// PhonesForArea returns the expected phone count for a catalogue area.
// City of London wards use the daytime-workforce figure scaled by the
// ward's share of the City's area. Group areas sum their children.
// Police-force areas fall back to the ingestion-time overlap estimate
// when the catalogue row predates it.
func (c *Counter) PhonesForArea(area *catalogue.Area) (float64, error) {
	if area.IsElectoralWard() && IsCityOfLondonWard(area.Code()) {
		polygons, err := area.Polygons()
		if err != nil {
			return 0, err
		}
		share := polygons.EstimatedAreaM2() / CityOfLondonAreaSquareMetres
		return CityOfLondonDaytimePopulation * share, nil
	}

	subAreas, err := area.SubAreas()
	if err != nil {
		return 0, err
	}
	if len(subAreas) > 0 {
		var total float64
		for _, sub := range subAreas {
			phones, err := c.PhonesForArea(sub)
			if err != nil {
				return 0, err
			}
			total += phones
		}
		return total, nil
	}

	if area.RawPhoneCount == 0 && area.IsPoliceForceArea() {
		return PoliceForcePhones[area.ID], nil
	}
	return area.RawPhoneCount, nil
}

// PhonesForSelection sums the phone counts of the given areas.
func (c *Counter) PhonesForSelection(areas []*catalogue.Area) (float64, error) {
	var total float64
	for _, area := range areas {
		phones, err := c.PhonesForArea(area)
		if err != nil {
			return 0, err
		}
		total += phones
	}
	return total, nil
}

// OverlappingWards returns the ward areas whose simplified polygons
// intersect the given polygons. Candidates come from the spatial index;
// each is confirmed with an exact intersection test.
func (c *Counter) OverlappingWards(ctx context.Context, polygons *geometry.PolygonSet) ([]*catalogue.Area, error) {
	if polygons.Len() == 0 {
		return nil, nil
	}
	candidates, err := c.NearbyWards(polygons)
	if err != nil {
		return nil, err
	}

	var overlapping []*catalogue.Area
	for _, ward := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		simple, err := ward.SimplePolygons()
		if err != nil {
			return nil, err
		}
		if simple.Intersects(polygons) {
			overlapping = append(overlapping, ward)
		}
	}
	return overlapping, nil
}

// NearbyWards returns the wards whose bounding boxes intersect the
// bounding box of the given polygons, without the exact test.
func (c *Counter) NearbyWards(polygons *geometry.PolygonSet) ([]*catalogue.Area, error) {
	if polygons.Len() == 0 {
		return nil, nil
	}
	ids := c.index.Query(polygons.Bounds())
	return c.store.GetAreas(ids)
}

// PhonesForPolygons estimates the phone count inside arbitrary
// polygons: each overlapping ward contributes its count weighted by the
// fraction of the ward covered.
func (c *Counter) PhonesForPolygons(ctx context.Context, polygons *geometry.PolygonSet) (float64, error) {
	wards, err := c.NearbyWards(polygons)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, ward := range wards {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		simple, err := ward.SimplePolygons()
		if err != nil {
			return 0, err
		}
		ratio := simple.RatioOfIntersectionWith(polygons)
		if ratio == 0 {
			continue
		}
		phones, err := c.PhonesForArea(ward)
		if err != nil {
			return 0, err
		}
		total += ratio * phones
	}
	return total, nil
}
