package broadcast

import (
	"context"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/geometry"
	"github.com/alertarea/alertarea/internal/population"
)

// AxisOrderLatLong labels the axis order of every exported polygon.
const AxisOrderLatLong = "latitude,longitude"

// DefaultNaiveEstimateAreaM2 is roughly the area of the largest UK
// county (North Yorkshire). Bled selections beyond it skip the exact
// ward-intersection count to keep composition under the latency budget.
const DefaultNaiveEstimateAreaM2 = 8.65e9

// ComposerConfig wires a Composer.
type ComposerConfig struct {
	Store      *catalogue.Store
	Counter    *population.Counter
	Aggregator *aggregate.Aggregator
	Options    geometry.Options

	// NaiveEstimateAreaM2 overrides DefaultNaiveEstimateAreaM2.
	NaiveEstimateAreaM2 float64
}

// Composer turns an area selection into a broadcastable payload.
type Composer struct {
	store      *catalogue.Store
	counter    *population.Counter
	aggregator *aggregate.Aggregator
	opts       geometry.Options
	naiveM2    float64
}

// NewComposer creates a Composer, applying defaults for zero-valued
// config fields.
func NewComposer(cfg ComposerConfig) *Composer {
	if cfg.NaiveEstimateAreaM2 == 0 {
		cfg.NaiveEstimateAreaM2 = DefaultNaiveEstimateAreaM2
	}
	return &Composer{
		store:      cfg.Store,
		counter:    cfg.Counter,
		aggregator: cfg.Aggregator,
		opts:       cfg.Options,
		naiveM2:    cfg.NaiveEstimateAreaM2,
	}
}

// Composition is the broadcastable payload for a selection.
type Composition struct {
	IDs            []string      `json:"ids"`
	Names          []string      `json:"names"`
	AggregateNames []string      `json:"aggregate_names"`
	SimplePolygons [][][]float64 `json:"simple_polygons"`
	AxisOrder      string        `json:"axis_order"`

	CountOfPhones       float64 `json:"count_of_phones"`
	CountOfPhonesLikely float64 `json:"count_of_phones_likely"`
}

// Compose resolves a selection into its payload: the simplified
// polygons of every member merged into one set, display and aggregate
// names, and exact and bleed-adjusted phone counts. Selections of more
// than one area are re-smoothed and re-simplified so the combined
// point count stays broadcastable.
func (c *Composer) Compose(ctx context.Context, sel aggregate.Selection) (*Composition, error) {
	total := len(sel.Areas) + len(sel.Custom)
	if total == 0 {
		return nil, ErrEmptySelection
	}

	ids := make([]string, 0, total)
	names := make([]string, 0, total)
	sets := make([]*geometry.PolygonSet, 0, total)
	for _, area := range sel.Areas {
		simple, err := area.SimplePolygons()
		if err != nil {
			return nil, err
		}
		ids = append(ids, area.ID)
		names = append(names, area.DisplayName())
		sets = append(sets, simple)
	}
	for _, custom := range sel.Custom {
		ids = append(ids, custom.ID)
		names = append(names, custom.Name)
		sets = append(sets, custom.SimplePolygons())
	}

	combined := geometry.Merge(sets, c.opts)
	if total > 1 {
		smoothed, err := combined.Smooth(ctx)
		if err != nil {
			return nil, err
		}
		combined, err = smoothed.Simplify(ctx)
		if err != nil {
			return nil, err
		}
	}

	aggregateNames, err := c.aggregator.Names(ctx, sel)
	if err != nil {
		return nil, err
	}

	phones, err := c.counter.PhonesForSelection(sel.Areas)
	if err != nil {
		return nil, err
	}
	for _, custom := range sel.Custom {
		p, err := c.counter.PhonesForPolygons(ctx, custom.Polygons())
		if err != nil {
			return nil, err
		}
		phones += p
	}
	phones = float64(population.RoundToSignificantFigures(phones, 1))

	likely, err := c.likelyPhones(ctx, combined, phones)
	if err != nil {
		return nil, err
	}
	likely = float64(population.RoundToSignificantFigures(likely, 1))

	return &Composition{
		IDs:                 ids,
		Names:               names,
		AggregateNames:      aggregateNames,
		SimplePolygons:      combined.AsPairsLatLong(),
		AxisOrder:           AxisOrderLatLong,
		CountOfPhones:       phones,
		CountOfPhonesLikely: likely,
	}, nil
}

// likelyPhones estimates how many phones the broadcast will actually
// reach once mast bleed is accounted for. Small areas get an exact
// ward-intersection count over the bled outline; oversized ones scale
// the exact count by the area growth instead.
func (c *Composer) likelyPhones(ctx context.Context, combined *geometry.PolygonSet, exact float64) (float64, error) {
	area := combined.EstimatedAreaM2()
	bleed := population.BleedForArea(exact, area)
	bled, err := combined.BleedBy(ctx, bleed)
	if err != nil {
		return 0, err
	}

	naive := func() float64 {
		if area == 0 {
			return exact
		}
		return exact * bled.EstimatedAreaM2() / area
	}

	if area > c.naiveM2 {
		return naive(), nil
	}

	likely, err := c.counter.PhonesForPolygons(ctx, bled)
	if err != nil {
		return 0, err
	}
	// The bled outline is simplified independently of the base one, so
	// its overlap count can undershoot the un-bled count.
	if likely < exact {
		return naive(), nil
	}
	return likely, nil
}
