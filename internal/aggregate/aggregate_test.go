package aggregate_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/geometry"
	"github.com/alertarea/alertarea/internal/population"
)

const testUTM = 32631

func ringAround(lon, lat, size float64) orb.Ring {
	return orb.Ring{
		{lon, lat},
		{lon + size, lat},
		{lon + size, lat + size},
		{lon, lat + size},
		{lon, lat},
	}
}

type harness struct {
	store      *catalogue.Store
	aggregator *aggregate.Aggregator
	builder    *customarea.Builder
}

// newHarness builds a catalogue with two counties (Kent with four
// authorities, Surrey with two), wards under Maidstone, pass-through
// areas, and a REPPIR site inside Folkestone and Hythe.
func newHarness(t *testing.T) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalogue.sqlite3")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	schema := []string{
		`CREATE TABLE libraries (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			name_singular TEXT NOT NULL, is_group INTEGER NOT NULL
		)`,
		`CREATE TABLE areas (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, library_id TEXT NOT NULL,
			parent_id TEXT, count_of_phones REAL,
			polygons BLOB, simple_polygons BLOB, utm_crs INTEGER
		)`,
		`CREATE TABLE area_bboxes (
			id TEXT PRIMARY KEY,
			min_x REAL, min_y REAL, max_x REAL, max_y REAL
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	libraries := [][]any{
		{"ctry19", "Countries", "country", 0},
		{"ctyua23", "Counties and Unitary Authorities", "county or unitary authority", 0},
		{"lad23", "Local authorities", "local authority", 1},
		{"wd23", "Electoral wards of local authorities", "electoral ward", 1},
		{"pfa23", "Police forces in England and Wales", "police force", 0},
		{"reppir", "REPPIR DEPZ sites", "REPPIR DEPZ site", 0},
	}
	for _, lib := range libraries {
		_, err := db.Exec(
			"INSERT INTO libraries (id, name, name_singular, is_group) VALUES (?, ?, ?, ?)",
			lib...,
		)
		require.NoError(t, err)
	}

	areas := []struct {
		id, name, library, parent string
		ring                      orb.Ring
	}{
		{"ctry19-E92000001", "England", "ctry19", "", ringAround(-6, 50, 7)},
		{"ctyua23-E10000016", "Kent", "ctyua23", "", ringAround(0.15, 51.15, 0.5)},
		{"ctyua23-E10000030", "Surrey", "ctyua23", "", ringAround(-0.45, 51.15, 0.3)},
		{"ctyua23-E06000023", "Bristol, City of", "ctyua23", "", ringAround(-2.7, 51.4, 0.2)},
		{"lad23-E07000110", "Maidstone", "lad23", "ctyua23-E10000016", ringAround(0.2, 51.2, 0.1)},
		{"lad23-E07000111", "Sevenoaks", "lad23", "ctyua23-E10000016", ringAround(0.3, 51.2, 0.1)},
		{"lad23-E07000112", "Folkestone and Hythe", "lad23", "ctyua23-E10000016", ringAround(0.4, 51.2, 0.1)},
		{"lad23-E07000113", "Swale", "lad23", "ctyua23-E10000016", ringAround(0.5, 51.2, 0.1)},
		{"lad23-E07000209", "Guildford", "lad23", "ctyua23-E10000030", ringAround(-0.4, 51.2, 0.1)},
		{"lad23-E07000216", "Woking", "lad23", "ctyua23-E10000030", ringAround(-0.3, 51.2, 0.1)},
		{"wd23-E05009960", "High Street", "wd23", "lad23-E07000110", ringAround(0.22, 51.22, 0.02)},
		{"wd23-E05009961", "Bridge", "wd23", "lad23-E07000110", ringAround(0.25, 51.25, 0.02)},
		{"pfa23-E23000032", "Kent Police", "pfa23", "", ringAround(0.1, 51.1, 0.6)},
		{"reppir-dungeness", "Dungeness", "reppir", "lad23-E07000112", ringAround(0.95, 50.91, 0.04)},
	}
	for _, a := range areas {
		var parent any
		if a.parent != "" {
			parent = a.parent
		}
		blob := catalogue.EncodePolygons([]orb.Ring{a.ring})
		_, err := db.Exec(
			`INSERT INTO areas
			 (id, name, library_id, parent_id, count_of_phones, polygons, simple_polygons, utm_crs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.id, a.name, a.library, parent, 1000.0, blob, blob, testUTM,
		)
		require.NoError(t, err)

		bound := a.ring.Bound()
		_, err = db.Exec(
			"INSERT INTO area_bboxes (id, min_x, min_y, max_x, max_y) VALUES (?, ?, ?, ?, ?)",
			a.id, bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1],
		)
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())

	store, err := catalogue.Open(path, geometry.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	entries, err := store.WardBBoxes()
	require.NoError(t, err)
	index, err := catalogue.NewIndex(entries)
	require.NoError(t, err)

	counter := population.NewCounter(population.CounterConfig{Store: store, Index: index})
	return &harness{
		store:      store,
		aggregator: aggregate.New(aggregate.Config{Store: store, Counter: counter}),
		builder:    customarea.NewBuilder(customarea.Config{Store: store, Index: index}),
	}
}

func (h *harness) areas(t *testing.T, ids ...string) []*catalogue.Area {
	t.Helper()
	areas, err := h.store.GetAreas(ids)
	require.NoError(t, err)
	require.Len(t, areas, len(ids))
	return areas
}

func TestAreas_WardRollsUpToAuthority(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "wd23-E05009960", "wd23-E05009961"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Maidstone"}, names)
}

func TestAreas_FourAuthoritiesBecomeTheCounty(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t,
			"lad23-E07000110", "lad23-E07000111", "lad23-E07000112", "lad23-E07000113",
		),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kent"}, names)
}

func TestAreas_SoleSmallClusterKeepsAuthorities(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "lad23-E07000110", "lad23-E07000111"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Maidstone", "Sevenoaks"}, names)
}

func TestAreas_SmallClustersBecomeCountiesWhenSeveral(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t,
			"lad23-E07000110", "lad23-E07000111",
			"lad23-E07000209", "lad23-E07000216",
		),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kent", "Surrey"}, names)
}

func TestAreas_SmallClusterRollsUpBesidePassThrough(t *testing.T) {
	h := newHarness(t)

	// two Kent authorities beside a unitary authority are no longer
	// the sole cluster, so they collapse to the county
	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "lad23-E07000110", "lad23-E07000111", "ctyua23-E06000023"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"City of Bristol", "Kent"}, names)
}

func TestNames_REPPIRSiteCarriesLocalAuthority(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "reppir-dungeness"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dungeness, Folkestone and Hythe"}, names)
}

func TestAreas_MixedClusterSizes(t *testing.T) {
	h := newHarness(t)

	// one Surrey authority stays itself while Kent's four collapse
	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t,
			"lad23-E07000110", "lad23-E07000111", "lad23-E07000112", "lad23-E07000113",
			"lad23-E07000209",
		),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Guildford", "Kent"}, names)
}

func TestAreas_PassThrough(t *testing.T) {
	h := newHarness(t)

	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "ctry19-E92000001", "pfa23-E23000032", "ctyua23-E06000023"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"City of Bristol", "England", "Kent Police"}, names)
}

func TestAreas_CustomExpandsToWards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	custom, err := h.builder.FromCoordinates(ctx, 51.23, 0.23, 1)
	require.NoError(t, err)

	names, err := h.aggregator.Names(ctx, aggregate.Selection{
		Custom: []*customarea.Area{custom},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Maidstone"}, names)
}

func TestAreas_DeduplicatesAcrossForms(t *testing.T) {
	h := newHarness(t)

	// a ward plus its own authority must not name Maidstone twice
	names, err := h.aggregator.Names(context.Background(), aggregate.Selection{
		Areas: h.areas(t, "wd23-E05009960", "lad23-E07000110"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Maidstone"}, names)
}
