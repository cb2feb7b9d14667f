package geometry

import (
	"context"
	"math"
	"sort"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// circleSegments is the number of vertices used to approximate the disc
// swept along edges and around vertices when buffering.
const circleSegments = 32

// bufferOutward grows every polygon by the given distance. The result is
// the union of the polygon with a disc swept along its boundary, built
// from per-edge quads and per-vertex discs and merged with a single
// boolean union. Coordinates must be in a projected CRS.
func (p *PolygonSet) bufferOutward(ctx context.Context, distance float64) (*PolygonSet, error) {
	if distance <= 0 || len(p.polys) == 0 {
		return p, nil
	}
	pieces := make([]polygol.Geom, 0, len(p.polys))
	for _, poly := range p.polys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(poly) == 0 {
			continue
		}
		pieces = append(pieces, toGeom(orb.MultiPolygon{poly}))
		pieces = append(pieces, boundarySweep(poly[0], distance)...)
	}
	merged, err := unionGeoms(pieces)
	if err != nil {
		return nil, &GeometryError{Op: "buffer", Err: err}
	}
	return New(exteriorRingsByArea(merged), p.crs, p.metric, p.opts), nil
}

// bufferInward shrinks every polygon by the given distance: the swept
// boundary disc is subtracted from the polygon. Parts that vanish are
// dropped.
func (p *PolygonSet) bufferInward(ctx context.Context, distance float64) (*PolygonSet, error) {
	if distance <= 0 || len(p.polys) == 0 {
		return p, nil
	}
	var rings []orb.Ring
	for _, poly := range p.polys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(poly) == 0 {
			continue
		}
		sweep, err := unionGeoms(boundarySweep(poly[0], distance))
		if err != nil {
			return nil, &GeometryError{Op: "erode", Err: err}
		}
		remains, err := polygol.Difference(toGeom(orb.MultiPolygon{poly}), toGeom(sweep))
		if err != nil {
			return nil, &GeometryError{Op: "erode", Err: err}
		}
		for _, ring := range exteriorRingsByArea(fromGeom(remains)) {
			if math.Abs(planar.Area(ring)) < zeroAreaM2 {
				continue
			}
			rings = append(rings, ring)
		}
	}
	return New(rings, p.crs, p.metric, p.opts), nil
}

// boundarySweep covers the ring's boundary with quads along each edge
// and discs at each vertex, together approximating the Minkowski sum of
// the boundary with a disc of the given radius.
func boundarySweep(ring orb.Ring, radius float64) []polygol.Geom {
	pieces := make([]polygol.Geom, 0, 2*len(ring))
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		length := math.Hypot(dx, dy)
		if length > 0 {
			// unit normal, scaled to the radius
			nx, ny := -dy/length*radius, dx/length*radius
			quad := orb.Ring{
				{a[0] + nx, a[1] + ny},
				{b[0] + nx, b[1] + ny},
				{b[0] - nx, b[1] - ny},
				{a[0] - nx, a[1] - ny},
			}
			quad = closeRing(quad)
			pieces = append(pieces, toGeom(orb.MultiPolygon{{quad}}))
		}
		pieces = append(pieces, toGeom(orb.MultiPolygon{{discRing(a, radius)}}))
	}
	return pieces
}

// discRing builds a closed circle approximation around a centre point.
func discRing(centre orb.Point, radius float64) orb.Ring {
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		angle := 2 * math.Pi * float64(i) / circleSegments
		ring = append(ring, orb.Point{
			centre[0] + radius*math.Cos(angle),
			centre[1] + radius*math.Sin(angle),
		})
	}
	return closeRing(ring)
}

// selfUnion re-nodes a single polygon against itself, resolving
// self-intersections into valid parts.
func selfUnion(poly orb.Polygon) (orb.MultiPolygon, error) {
	out, err := polygol.Union(toGeom(orb.MultiPolygon{poly}))
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}

// unionPolygons merges all polygons of a multi-polygon into one shape.
func unionPolygons(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	geoms := make([]polygol.Geom, 0, len(mp))
	for _, poly := range mp {
		geoms = append(geoms, toGeom(orb.MultiPolygon{poly}))
	}
	return unionGeoms(geoms)
}

// intersectPolygons clips one multi-polygon against another.
func intersectPolygons(subject, clip orb.MultiPolygon) (orb.MultiPolygon, error) {
	out, err := polygol.Intersection(toGeom(subject), toGeom(clip))
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}

func unionGeoms(geoms []polygol.Geom) (orb.MultiPolygon, error) {
	switch len(geoms) {
	case 0:
		return nil, nil
	case 1:
		out, err := polygol.Union(geoms[0])
		if err != nil {
			return nil, err
		}
		return fromGeom(out), nil
	}
	out, err := polygol.Union(geoms[0], geoms[1:]...)
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}

// exteriorRingsByArea strips holes and returns the exterior rings of a
// multi-polygon ordered by descending area.
func exteriorRingsByArea(mp orb.MultiPolygon) []orb.Ring {
	type ringArea struct {
		ring orb.Ring
		area float64
	}
	ranked := make([]ringArea, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 || len(poly[0]) < 4 {
			continue
		}
		ring := closeRing(poly[0])
		ranked = append(ranked, ringArea{ring: ring, area: math.Abs(planar.Area(ring))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].area > ranked[j].area
	})
	rings := make([]orb.Ring, len(ranked))
	for i, ra := range ranked {
		rings[i] = ra.ring
	}
	return rings
}

func toGeom(mp orb.MultiPolygon) polygol.Geom {
	g := make(polygol.Geom, len(mp))
	for i, poly := range mp {
		rings := make([][][]float64, len(poly))
		for j, ring := range poly {
			pts := make([][]float64, len(ring))
			for k, pt := range ring {
				pts[k] = []float64{pt[0], pt[1]}
			}
			rings[j] = pts
		}
		g[i] = rings
	}
	return g
}

func fromGeom(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, polyCoords := range g {
		poly := make(orb.Polygon, 0, len(polyCoords))
		for _, ringCoords := range polyCoords {
			ring := make(orb.Ring, 0, len(ringCoords))
			for _, pt := range ringCoords {
				if len(pt) < 2 {
					continue
				}
				ring = append(ring, orb.Point{pt[0], pt[1]})
			}
			poly = append(poly, closeRing(ring))
		}
		if len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	return mp
}
