// Package customarea builds ad-hoc circular broadcast areas around a
// postcode, a lat/long pair or a British National Grid coordinate.
package customarea

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"

	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/geometry"
)

const (
	// discSegments is the vertex count of a generated circle, chosen to
	// stay well inside the broadcast point budget.
	discSegments = 64

	earthRadiusMetres = 6371010

	countriesLibraryID = "ctry19"
)

// Defaults applied by NewBuilder when the config leaves them zero.
const (
	DefaultMinRadiusKm = 0.1
	DefaultMaxRadiusKm = 38.0

	// DefaultBoundaryBufferMetres pads the UK coastline so centres just
	// offshore (piers, estuaries, near-shore incidents) still pass.
	DefaultBoundaryBufferMetres = 500
)

// radiusTolerance absorbs the rounding of radii entered with two
// decimal places, so 0.1 and 38.0 themselves always pass.
const radiusTolerance = 0.001

// Config wires a Builder.
type Config struct {
	// Store is the area catalogue, used for postcode lookups and the
	// country boundaries.
	Store *catalogue.Store

	// Index locates the local authority a centre falls in, for slugs.
	Index *catalogue.Index

	// Options configures the generated polygon sets.
	Options geometry.Options

	// MinRadiusKm and MaxRadiusKm bound the disc radius. The ceiling
	// tracks what the cell-broadcast carriers can actually deliver, so
	// it is tuned per deployment rather than fixed.
	MinRadiusKm float64
	MaxRadiusKm float64

	// BoundaryBufferMetres pads the country boundaries for the
	// containment check.
	BoundaryBufferMetres float64

	// TestAreaIDs are catalogue areas outside the UK that operators may
	// still centre a broadcast in (hardware test sites).
	TestAreaIDs []string
}

// Builder creates custom circular areas. The UK boundary is buffered
// lazily on first use and cached for the process lifetime.
type Builder struct {
	store   *catalogue.Store
	index   *catalogue.Index
	opts    geometry.Options
	minKm   float64
	maxKm   float64
	bufferM float64
	testIDs []string

	boundaryMu sync.Mutex
	boundary   []*geometry.PolygonSet
}

// NewBuilder creates a Builder, applying defaults for zero-valued
// config fields.
func NewBuilder(cfg Config) *Builder {
	if cfg.MinRadiusKm == 0 {
		cfg.MinRadiusKm = DefaultMinRadiusKm
	}
	if cfg.MaxRadiusKm == 0 {
		cfg.MaxRadiusKm = DefaultMaxRadiusKm
	}
	if cfg.BoundaryBufferMetres == 0 {
		cfg.BoundaryBufferMetres = DefaultBoundaryBufferMetres
	}
	return &Builder{
		store:   cfg.Store,
		index:   cfg.Index,
		opts:    cfg.Options,
		minKm:   cfg.MinRadiusKm,
		maxKm:   cfg.MaxRadiusKm,
		bufferM: cfg.BoundaryBufferMetres,
		testIDs: cfg.TestAreaIDs,
	}
}

// Area is a request-scoped custom broadcast area. Its id doubles as its
// display name.
type Area struct {
	ID       string
	Name     string
	Centre   orb.Point // WGS84 lon, lat
	RadiusKm float64

	polygons *geometry.PolygonSet
}

// Polygons returns the disc polygon of the area.
func (a *Area) Polygons() *geometry.PolygonSet { return a.polygons }

// SimplePolygons returns the broadcastable form of the area. Discs are
// generated under the point budget, so no further simplification is
// applied.
func (a *Area) SimplePolygons() *geometry.PolygonSet { return a.polygons }

// FromPostcode builds a disc around the centroid of a postcode unit.
// The postcode must be in canonical form (uppercase, single space).
// The slug reads like "3km around the postcode BD1 1EE in Bradford".
func (b *Builder) FromPostcode(ctx context.Context, postcode string, radiusKm float64) (*Area, error) {
	unit, err := b.store.GetArea(catalogue.PostcodeAreaID(postcode))
	if err != nil {
		return nil, err
	}
	polygons, err := unit.Polygons()
	if err != nil {
		return nil, err
	}
	centre := polygons.Centroid()

	council := b.postcodeAuthority(ctx, unit, centre)
	slug := fmt.Sprintf("%skm around the postcode %s", formatTrimmed(radiusKm), postcode)
	if council != "" {
		slug += " in " + council
	}
	return b.build(ctx, centre, radiusKm, slug)
}

// FromCoordinates builds a disc around a WGS84 lat/long centre.
func (b *Builder) FromCoordinates(ctx context.Context, lat, lng, radiusKm float64) (*Area, error) {
	centre := orb.Point{lng, lat}
	slug := fmt.Sprintf(
		"%skm around %s latitude, %s longitude",
		formatTrimmed(radiusKm), formatTrimmed(lat), formatTrimmed(lng),
	)
	if council := b.localAuthorityName(ctx, centre); council != "" {
		slug += " in " + council
	}
	return b.build(ctx, centre, radiusKm, slug)
}

// FromEastingNorthing builds a disc around a British National Grid
// coordinate.
func (b *Builder) FromEastingNorthing(ctx context.Context, easting, northing, radiusKm float64) (*Area, error) {
	centre := geometry.TransformPoint(
		orb.Point{easting, northing},
		geometry.BritishNationalGrid, geometry.WGS84,
	)
	slug := fmt.Sprintf(
		"%skm around the easting of %s and the northing of %s",
		formatTrimmed(radiusKm), formatTrimmed(easting), formatTrimmed(northing),
	)
	if council := b.localAuthorityName(ctx, centre); council != "" {
		slug += " in " + council
	}
	return b.build(ctx, centre, radiusKm, slug)
}

func (b *Builder) build(ctx context.Context, centre orb.Point, radiusKm float64, slug string) (*Area, error) {
	if radiusKm < b.minKm-radiusTolerance || radiusKm > b.maxKm+radiusTolerance {
		return nil, &RadiusRangeError{RadiusKm: radiusKm, MinKm: b.minKm, MaxKm: b.maxKm}
	}

	inside, err := b.containsCentre(ctx, centre)
	if err != nil {
		return nil, err
	}
	if !inside {
		return nil, &OutOfBoundsError{Lat: centre[1], Lng: centre[0]}
	}

	return &Area{
		ID:       slug,
		Name:     slug,
		Centre:   centre,
		RadiusKm: radiusKm,
		polygons: Disc(centre, radiusKm*1000, b.opts),
	}, nil
}

// Rebuild reconstructs a disc from stored parameters, keeping its
// original slug. Range and containment were checked when the disc was
// first built, so they are not checked again.
func (b *Builder) Rebuild(slug string, centre orb.Point, radiusKm float64) *Area {
	return &Area{
		ID:       slug,
		Name:     slug,
		Centre:   centre,
		RadiusKm: radiusKm,
		polygons: Disc(centre, radiusKm*1000, b.opts),
	}
}

// Disc returns a circular polygon of the given radius in metres around
// a WGS84 centre, built geodesically on the sphere.
func Disc(centre orb.Point, radiusMetres float64, opts geometry.Options) *geometry.PolygonSet {
	point := s2.PointFromLatLng(s2.LatLngFromDegrees(centre[1], centre[0]))
	loop := s2.RegularLoop(point, s1.Angle(radiusMetres/earthRadiusMetres), discSegments)

	ring := make(orb.Ring, 0, discSegments+1)
	for _, v := range loop.Vertices() {
		ll := s2.LatLngFromPoint(v)
		ring = append(ring, orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()})
	}
	ring = append(ring, ring[0])
	return geometry.FromWGS84([]orb.Ring{ring}, opts)
}

// containsCentre reports whether the centre lies within the buffered UK
// boundary or a configured test area.
func (b *Builder) containsCentre(ctx context.Context, centre orb.Point) (bool, error) {
	boundary, err := b.ukBoundary(ctx)
	if err != nil {
		return false, err
	}
	for _, region := range boundary {
		if region.ContainsPoint(centre[0], centre[1]) {
			return true, nil
		}
	}
	return false, nil
}

// ukBoundary buffers each UK country and each test area, caching the
// result for subsequent containment checks. Failures (including a
// cancelled first request) are not cached.
func (b *Builder) ukBoundary(ctx context.Context) ([]*geometry.PolygonSet, error) {
	b.boundaryMu.Lock()
	defer b.boundaryMu.Unlock()
	if b.boundary != nil {
		return b.boundary, nil
	}

	lib, err := b.store.GetLibrary(countriesLibraryID)
	if err != nil {
		return nil, err
	}
	regions := lib.Areas
	if len(b.testIDs) > 0 {
		extra, err := b.store.GetAreas(b.testIDs)
		if err != nil {
			return nil, err
		}
		regions = append(regions, extra...)
	}

	boundary := make([]*geometry.PolygonSet, 0, len(regions))
	for _, region := range regions {
		polygons, err := region.Polygons()
		if err != nil {
			return nil, err
		}
		buffered, err := polygons.BleedBy(ctx, b.bufferM)
		if err != nil {
			return nil, err
		}
		boundary = append(boundary, buffered)
	}
	b.boundary = boundary
	return b.boundary, nil
}

// postcodeAuthority resolves the local authority named in a postcode
// slug, preferring the catalogued parent of the postcode unit.
func (b *Builder) postcodeAuthority(ctx context.Context, unit *catalogue.Area, centre orb.Point) string {
	if unit.ParentID != "" {
		if parent, err := unit.Parent(); err == nil {
			return parent.DisplayName()
		}
	}
	return b.localAuthorityName(ctx, centre)
}

// localAuthorityName returns the display name of the local authority
// containing the point, or "" when the point is not in a catalogued
// ward. Lookup failures degrade to the bare slug rather than failing
// the build.
func (b *Builder) localAuthorityName(_ context.Context, centre orb.Point) string {
	// rtreego rejects zero-extent rects, so pad the point probe
	probe := orb.Bound{Min: centre, Max: centre}.Pad(1e-9)
	wards, err := b.store.GetAreas(b.index.Query(probe))
	if err != nil {
		return ""
	}
	for _, ward := range wards {
		polygons, err := ward.Polygons()
		if err != nil {
			continue
		}
		if !polygons.ContainsPoint(centre[0], centre[1]) {
			continue
		}
		parent, err := ward.Parent()
		if err != nil {
			continue
		}
		return parent.DisplayName()
	}
	return ""
}

// formatTrimmed renders a number with no trailing zeros, so slugs read
// "3km" rather than "3.0km".
func formatTrimmed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
