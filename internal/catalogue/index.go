package catalogue

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// BBoxEntry seeds one R-tree leaf: the WGS84 bounding box of a
// ward-level area.
type BBoxEntry struct {
	AreaID string
	MinX   float64
	MinY   float64
	MaxX   float64
	MaxY   float64
}

// indexedArea satisfies rtreego.Spatial for one catalogue area.
type indexedArea struct {
	id   string
	rect rtreego.Rect
}

func (a *indexedArea) Bounds() rtreego.Rect {
	return a.rect
}

// Index answers "which wards are near this shape?" in sub-linear time.
// It is built once from the catalogue's ward bounding boxes and is
// immutable afterwards, so concurrent queries need no locking. False
// positives are expected; the caller performs the exact intersection
// test against the candidate's polygons.
type Index struct {
	tree *rtreego.Rtree
}

// NewIndex builds the R-tree from ward bounding-box entries.
func NewIndex(entries []BBoxEntry) (*Index, error) {
	spatials := make([]rtreego.Spatial, 0, len(entries))
	for _, e := range entries {
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{e.MinX, e.MinY},
			rtreego.Point{e.MaxX, e.MaxY},
		)
		if err != nil {
			return nil, fmt.Errorf("bbox for %s: %w", e.AreaID, err)
		}
		spatials = append(spatials, &indexedArea{id: e.AreaID, rect: rect})
	}
	return &Index{tree: rtreego.NewTree(2, 25, 50, spatials...)}, nil
}

// Query returns the ids of every indexed area whose bounding box
// intersects the given WGS84 bound.
func (ix *Index) Query(bound orb.Bound) []string {
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{bound.Min[0], bound.Min[1]},
		rtreego.Point{bound.Max[0], bound.Max[1]},
	)
	if err != nil {
		return nil
	}

	matches := ix.tree.SearchIntersect(rect)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if area, ok := m.(*indexedArea); ok {
			ids = append(ids, area.id)
		}
	}
	return ids
}

// Size returns the number of indexed areas.
func (ix *Index) Size() int {
	return ix.tree.Size()
}
