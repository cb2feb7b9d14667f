// Package geometry provides the polygon pipeline for broadcast areas:
// CRS-tagged polygon collections with repair, smoothing, simplification,
// buffering and unioning under cell-broadcast point limits.
package geometry

import (
	"context"
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Geometry errors.
var (
	ErrEmptySet      = errors.New("polygon set is empty")
	ErrNotRepairable = errors.New("topology cannot be repaired")
	ErrBadTransform  = errors.New("coordinate transform produced non-finite values")
)

const (
	// outputPrecision is the number of decimal places kept on public
	// WGS84 exports, roughly one metre on the ground.
	outputPrecision = 5

	// zeroAreaM2 is the threshold below which a repaired polygon is
	// considered degenerate and dropped.
	zeroAreaM2 = 1e-6
)

// PolygonSet is an ordered, immutable collection of polygons sharing one
// CRS. Only exterior rings are kept; holes are discarded during repair.
// Derived forms (smooth, simplify, bleed) are memoised on the instance.
// Instances are request-local, so memoisation needs no synchronisation.
type PolygonSet struct {
	crs    CRS
	metric CRS
	polys  orb.MultiPolygon
	opts   Options

	// memoised derived forms
	wgsForm    *PolygonSet
	metricForm *PolygonSet
	smoothed   *PolygonSet
	simplified *PolygonSet
	unioned    *PolygonSet
	bleeds     map[float64]*PolygonSet
}

// New constructs a PolygonSet from exterior rings in the given CRS.
// metric names the projected CRS used for metre-based operations; pass 0
// to select a UTM zone from the centroid once coordinates are known.
func New(rings []orb.Ring, crs CRS, metric CRS, opts Options) *PolygonSet {
	polys := make(orb.MultiPolygon, 0, len(rings))
	for _, r := range rings {
		r = closeRing(r)
		if len(r) < 4 {
			continue
		}
		polys = append(polys, orb.Polygon{r})
	}

	p := &PolygonSet{
		crs:    crs,
		metric: metric,
		polys:  polys,
		opts:   opts.withDefaults(),
	}
	if p.metric == 0 {
		p.metric = p.chooseMetricCRS()
	}
	return p
}

// FromWGS84 constructs a PolygonSet from lon,lat exterior rings. Input
// coordinates are rounded to 5 decimal places and a UTM zone is chosen
// from the centroid for metric operations.
func FromWGS84(rings []orb.Ring, opts Options) *PolygonSet {
	rounded := make([]orb.Ring, len(rings))
	for i, r := range rings {
		out := make(orb.Ring, len(r))
		for j, pt := range r {
			out[j] = orb.Point{round(pt[0], outputPrecision), round(pt[1], outputPrecision)}
		}
		rounded[i] = out
	}
	return New(rounded, WGS84, 0, opts)
}

// FromLatLongPairs constructs a WGS84 PolygonSet from rings whose
// coordinate pairs are in [lat, lon] order, as stored on broadcast
// records.
func FromLatLongPairs(rings [][][]float64, opts Options) *PolygonSet {
	flipped := make([]orb.Ring, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, pair := range ring {
			if len(pair) < 2 {
				continue
			}
			r = append(r, orb.Point{pair[1], pair[0]})
		}
		flipped = append(flipped, r)
	}
	return FromWGS84(flipped, opts)
}

// CRS returns the authority code of the stored coordinates.
func (p *PolygonSet) CRS() CRS { return p.crs }

// MetricCRS returns the projected CRS used for metre-based operations.
func (p *PolygonSet) MetricCRS() CRS { return p.metric }

// Options returns the pipeline parameters this set was built with.
func (p *PolygonSet) Options() Options { return p.opts }

// Len returns the number of polygons in the set.
func (p *PolygonSet) Len() int { return len(p.polys) }

// PointCount returns the total number of coordinates across all rings.
func (p *PolygonSet) PointCount() int {
	n := 0
	for _, poly := range p.polys {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}

// Bounds returns the WGS84 bounding box of the set.
func (p *PolygonSet) Bounds() orb.Bound {
	return p.ToWGS84().polys.Bound()
}

// EstimatedAreaM2 returns the planar area of the set in square metres,
// computed in the projected CRS.
func (p *PolygonSet) EstimatedAreaM2() float64 {
	var total float64
	for _, poly := range p.Metric().polys {
		total += math.Abs(planar.Area(poly))
	}
	return total
}

// PerimeterM returns the total boundary length in metres.
func (p *PolygonSet) PerimeterM() float64 {
	return planar.Length(p.Metric().polys)
}

// Centroid returns the area-weighted centroid of the set in WGS84.
func (p *PolygonSet) Centroid() orb.Point {
	pt, _ := planar.CentroidArea(p.ToWGS84().polys)
	return orb.Point{round(pt[0], outputPrecision+1), round(pt[1], outputPrecision+1)}
}

// ContainsPoint reports whether the WGS84 point lies inside the set.
func (p *PolygonSet) ContainsPoint(lon, lat float64) bool {
	return planar.MultiPolygonContains(p.ToWGS84().polys, orb.Point{lon, lat})
}

// AsPairsLongLat exports every ring as [lon, lat] pairs at 5 d.p.
func (p *PolygonSet) AsPairsLongLat() [][][]float64 {
	return p.export(false)
}

// AsPairsLatLong exports every ring as [lat, lon] pairs at 5 d.p. This
// is the axis order required at the broadcast payload boundary.
func (p *PolygonSet) AsPairsLatLong() [][][]float64 {
	return p.export(true)
}

func (p *PolygonSet) export(latFirst bool) [][][]float64 {
	wgs := p.ToWGS84()
	out := make([][][]float64, 0, len(wgs.polys))
	for _, poly := range wgs.polys {
		if len(poly) == 0 {
			continue
		}
		ring := poly[0]
		pairs := make([][]float64, len(ring))
		for i, pt := range ring {
			lon := round(pt[0], outputPrecision)
			lat := round(pt[1], outputPrecision)
			if latFirst {
				pairs[i] = []float64{lat, lon}
			} else {
				pairs[i] = []float64{lon, lat}
			}
		}
		out = append(out, pairs)
	}
	return out
}

// Rings returns the exterior rings in the stored CRS. The result shares
// no memory with the set.
func (p *PolygonSet) Rings() []orb.Ring {
	out := make([]orb.Ring, 0, len(p.polys))
	for _, poly := range p.polys {
		if len(poly) == 0 {
			continue
		}
		out = append(out, poly[0].Clone())
	}
	return out
}

// Reproject returns a new PolygonSet with every coordinate converted to
// the target CRS. The metric CRS tag is preserved.
func (p *PolygonSet) Reproject(target CRS) (*PolygonSet, error) {
	if p.crs == target {
		return p, nil
	}
	rings := make([]orb.Ring, 0, len(p.polys))
	for _, poly := range p.polys {
		if len(poly) == 0 {
			continue
		}
		r := transformRing(poly[0], p.crs, target)
		for _, pt := range r {
			if math.IsNaN(pt[0]) || math.IsInf(pt[0], 0) || math.IsNaN(pt[1]) || math.IsInf(pt[1], 0) {
				return nil, &GeometryError{Op: "reproject", Err: ErrBadTransform}
			}
		}
		rings = append(rings, r)
	}
	return New(rings, target, p.metric, p.opts), nil
}

// ToWGS84 returns the set in geographic coordinates, memoised.
func (p *PolygonSet) ToWGS84() *PolygonSet {
	if p.crs == WGS84 {
		return p
	}
	if p.wgsForm == nil {
		s, err := p.Reproject(WGS84)
		if err != nil {
			// A set that was constructed from finite projected
			// coordinates always has a geographic form.
			s = New(nil, WGS84, p.metric, p.opts)
		}
		p.wgsForm = s
	}
	return p.wgsForm
}

// Metric returns the set in its projected CRS, memoised.
func (p *PolygonSet) Metric() *PolygonSet {
	if p.crs == p.metric {
		return p
	}
	if p.metricForm == nil {
		s, err := p.Reproject(p.metric)
		if err != nil {
			s = New(nil, p.metric, p.metric, p.opts)
		}
		p.metricForm = s
	}
	return p.metricForm
}

// CleanInvalid repairs invalid topology by re-noding each polygon
// against itself, the planar equivalent of a zero-width buffer. A
// repaired polygon that splits into several parts contributes each part;
// parts with zero area are dropped silently and holes are discarded.
func (p *PolygonSet) CleanInvalid(ctx context.Context) (*PolygonSet, error) {
	rings := make([]orb.Ring, 0, len(p.polys))
	for _, poly := range p.polys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts, err := selfUnion(poly)
		if err != nil {
			return nil, &GeometryError{Op: "clean", Err: ErrNotRepairable}
		}
		for _, part := range parts {
			if len(part) == 0 || len(part[0]) < 4 {
				continue
			}
			if math.Abs(planar.Area(part[0])) < zeroAreaM2 {
				continue
			}
			rings = append(rings, closeRing(part[0]))
		}
	}
	return New(rings, p.crs, p.metric, p.opts), nil
}

// Smooth buffers the set outward then inward by the same magnitude,
// removing slivers and thin spikes ahead of simplification. The
// magnitude is max(perimeter / PerimeterToBufferRatio, MinSmoothRadius).
// The result is memoised and carries the projected CRS.
func (p *PolygonSet) Smooth(ctx context.Context) (*PolygonSet, error) {
	if p.smoothed != nil {
		return p.smoothed, nil
	}
	m := p.Metric()
	radius := math.Max(m.PerimeterM()/p.opts.PerimeterToBufferRatio, p.opts.MinSmoothRadiusMetres)

	grown, err := m.bufferOutward(ctx, radius)
	if err != nil {
		return nil, err
	}
	shrunk, err := grown.bufferInward(ctx, radius)
	if err != nil {
		return nil, err
	}
	p.smoothed = shrunk
	return shrunk, nil
}

// Simplify reduces the point count with Douglas-Peucker, starting at
// max(perimeter / PerimeterToSimplificationRatio, MinTolerance) and
// doubling the tolerance until the set fits the point budget. Exceeding
// the iteration cap returns a SimplificationError.
func (p *PolygonSet) Simplify(ctx context.Context) (*PolygonSet, error) {
	if p.simplified != nil {
		return p.simplified, nil
	}
	m := p.Metric()
	if m.PointCount() <= p.opts.MaxPoints {
		p.simplified = m
		return m, nil
	}

	tolerance := math.Max(m.PerimeterM()/p.opts.PerimeterToSimplificationRatio, p.opts.MinToleranceMetres)
	current := m
	for i := 0; i < p.opts.MaxSimplifyIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reduced := current.douglasPeucker(tolerance)
		cleaned, err := reduced.CleanInvalid(ctx)
		if err != nil {
			return nil, err
		}
		if cleaned.PointCount() <= p.opts.MaxPoints {
			p.simplified = cleaned
			return cleaned, nil
		}
		current = cleaned
		tolerance *= 2
	}
	return nil, &SimplificationError{
		Points:     current.PointCount(),
		Budget:     p.opts.MaxPoints,
		Iterations: p.opts.MaxSimplifyIterations,
	}
}

// BleedBy buffers the set outward by the given number of metres and
// returns the result in WGS84. Results are memoised per radius.
func (p *PolygonSet) BleedBy(ctx context.Context, metres float64) (*PolygonSet, error) {
	if s, ok := p.bleeds[metres]; ok {
		return s, nil
	}
	grown, err := p.Metric().bufferOutward(ctx, metres)
	if err != nil {
		return nil, err
	}
	wgs, err := grown.Reproject(WGS84)
	if err != nil {
		return nil, err
	}
	if p.bleeds == nil {
		p.bleeds = make(map[float64]*PolygonSet)
	}
	p.bleeds[metres] = wgs
	return wgs, nil
}

// UnionAll merges every polygon in the set into its unary union.
// Sub-polygons of a multi-polygon result are ordered by descending area
// and interior holes are stripped. The result is memoised.
func (p *PolygonSet) UnionAll(ctx context.Context) (*PolygonSet, error) {
	if p.unioned != nil {
		return p.unioned, nil
	}
	if len(p.polys) == 0 {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged, err := unionPolygons(p.Metric().polys)
	if err != nil {
		return nil, &GeometryError{Op: "union", Err: err}
	}
	out := New(exteriorRingsByArea(merged), p.metric, p.metric, p.opts)
	p.unioned = out
	return out, nil
}

// Intersects reports whether any polygon of the set overlaps the other
// set. Both sets are compared in this set's projected CRS.
func (p *PolygonSet) Intersects(other *PolygonSet) bool {
	return p.intersectionAreaWith(other) > zeroAreaM2
}

// RatioOfIntersectionWith returns the fraction of this set's area that
// overlaps the other set, in [0, 1].
func (p *PolygonSet) RatioOfIntersectionWith(other *PolygonSet) float64 {
	area := p.EstimatedAreaM2()
	if area == 0 {
		return 0
	}
	ratio := p.intersectionAreaWith(other) / area
	return math.Min(ratio, 1)
}

func (p *PolygonSet) intersectionAreaWith(other *PolygonSet) float64 {
	if p.Len() == 0 || other.Len() == 0 {
		return 0
	}
	theirs, err := other.Reproject(p.metric)
	if err != nil {
		return 0
	}
	if !p.Metric().polys.Bound().Intersects(theirs.polys.Bound()) {
		return 0
	}
	overlap, err := intersectPolygons(p.Metric().polys, theirs.polys)
	if err != nil {
		return 0
	}
	var area float64
	for _, poly := range overlap {
		area += math.Abs(planar.Area(poly))
	}
	return area
}

// Merge combines multiple sets into one. Sets sharing a single metric
// CRS are concatenated in input order; otherwise everything is taken
// back to WGS84 and a fresh set picks a common UTM zone.
func Merge(sets []*PolygonSet, opts Options) *PolygonSet {
	metrics := make(map[CRS]struct{})
	for _, s := range sets {
		metrics[s.MetricCRS()] = struct{}{}
	}

	if len(metrics) == 1 {
		var crs, metric CRS
		var rings []orb.Ring
		for _, s := range sets {
			crs = s.crs
			metric = s.metric
			rings = append(rings, s.Rings()...)
		}
		return New(rings, crs, metric, opts)
	}

	var rings []orb.Ring
	for _, s := range sets {
		rings = append(rings, s.ToWGS84().Rings()...)
	}
	return FromWGS84(rings, opts)
}

// douglasPeucker applies one Douglas-Peucker pass at the given
// tolerance, dropping rings that collapse below a valid polygon.
func (p *PolygonSet) douglasPeucker(tolerance float64) *PolygonSet {
	reduced := simplify.DouglasPeucker(tolerance).Simplify(p.polys.Clone())
	mp, ok := reduced.(orb.MultiPolygon)
	if !ok {
		return New(nil, p.crs, p.metric, p.opts)
	}
	rings := make([]orb.Ring, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 || len(poly[0]) < 4 {
			continue
		}
		rings = append(rings, closeRing(poly[0]))
	}
	return New(rings, p.crs, p.metric, p.opts)
}

// chooseMetricCRS picks a UTM zone from the centroid of the raw
// coordinates. Projected sets keep their own CRS as the metric one.
func (p *PolygonSet) chooseMetricCRS() CRS {
	if p.crs.IsProjected() {
		return p.crs
	}
	if len(p.polys) == 0 {
		return UTMZoneFor(-2, 54) // centre of the UK
	}
	centre, _ := planar.CentroidArea(p.polys)
	return UTMZoneFor(centre[0], centre[1])
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
