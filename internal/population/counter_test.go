package population_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/geometry"
	"github.com/alertarea/alertarea/internal/population"
)

const testUTM = 32630

func ringAround(lon, lat, size float64) orb.Ring {
	return orb.Ring{
		{lon, lat},
		{lon + size, lat},
		{lon + size, lat + size},
		{lon, lat + size},
		{lon, lat},
	}
}

type fixtureArea struct {
	id      string
	name    string
	library string
	parent  string
	phones  float64
	ring    orb.Ring
}

func fixtureAreas() []fixtureArea {
	return []fixtureArea{
		{
			id: "lad23-E07000178", name: "Oxford", library: "lad23",
			parent: "ctyua23-E10000025", phones: 120000,
			ring: ringAround(-1.3, 51.7, 0.1),
		},
		{
			id: "wd23-E05009997", name: "Carfax", library: "wd23",
			parent: "lad23-E07000178", phones: 8000,
			ring: ringAround(-1.27, 51.75, 0.01),
		},
		{
			id: "wd23-E05009998", name: "Holywell", library: "wd23",
			parent: "lad23-E07000178", phones: 7000,
			ring: ringAround(-1.25, 51.75, 0.01),
		},
		{
			id: "wd23-E05009288", name: "Aldersgate", library: "wd23",
			parent: "lad23-E09000001", phones: 1000,
			ring: ringAround(-0.098, 51.517, 0.004),
		},
		{
			id: "pfa23-E23000002", name: "Cumbria", library: "pfa23",
			phones: 0,
			ring:   ringAround(-3.5, 54.3, 0.8),
		},
	}
}

func newTestCounter(t *testing.T) (*population.Counter, *catalogue.Store) {
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
		{"lad23", "Local authorities", "local authority", 1},
		{"wd23", "Electoral wards of local authorities", "electoral ward", 1},
		{"pfa23", "Police forces in England and Wales", "police force", 0},
	}
	for _, lib := range libraries {
		_, err := db.Exec(
			"INSERT INTO libraries (id, name, name_singular, is_group) VALUES (?, ?, ?, ?)",
			lib...,
		)
		require.NoError(t, err)
	}

	for _, a := range fixtureAreas() {
		var parent any
		if a.parent != "" {
			parent = a.parent
		}
		blob := catalogue.EncodePolygons([]orb.Ring{a.ring})
		_, err := db.Exec(
			`INSERT INTO areas
			 (id, name, library_id, parent_id, count_of_phones, polygons, simple_polygons, utm_crs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.id, a.name, a.library, parent, a.phones, blob, blob, testUTM,
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
	return counter, store
}

func TestPhonesForArea_Ward(t *testing.T) {
	counter, store := newTestCounter(t)

	ward, err := store.GetArea("wd23-E05009997")
	require.NoError(t, err)

	phones, err := counter.PhonesForArea(ward)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, phones)
}

func TestPhonesForArea_GroupSumsChildren(t *testing.T) {
	counter, store := newTestCounter(t)

	lad, err := store.GetArea("lad23-E07000178")
	require.NoError(t, err)

	phones, err := counter.PhonesForArea(lad)
	require.NoError(t, err)
	// children win over the stored 120000
	assert.Equal(t, 15000.0, phones)
}

func TestPhonesForArea_CityOfLondonDaytime(t *testing.T) {
	counter, store := newTestCounter(t)

	ward, err := store.GetArea("wd23-E05009288")
	require.NoError(t, err)

	phones, err := counter.PhonesForArea(ward)
	require.NoError(t, err)

	polygons, err := ward.Polygons()
	require.NoError(t, err)
	want := population.CityOfLondonDaytimePopulation *
		polygons.EstimatedAreaM2() / population.CityOfLondonAreaSquareMetres

	// scaled daytime figure, not the stored 1000
	assert.InDelta(t, want, phones, 1)
	assert.Greater(t, phones, 1000.0)
}

func TestPhonesForArea_PoliceForceFallback(t *testing.T) {
	counter, store := newTestCounter(t)

	pfa, err := store.GetArea("pfa23-E23000002")
	require.NoError(t, err)

	phones, err := counter.PhonesForArea(pfa)
	require.NoError(t, err)
	assert.Equal(t, 354402.0, phones)
}

func TestPhonesForSelection(t *testing.T) {
	counter, store := newTestCounter(t)

	areas, err := store.GetAreas([]string{"wd23-E05009997", "wd23-E05009998"})
	require.NoError(t, err)

	phones, err := counter.PhonesForSelection(areas)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, phones)
}

func TestOverlappingWards(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	// covers Carfax entirely, nowhere near Holywell
	probe := geometry.FromWGS84([]orb.Ring{ringAround(-1.275, 51.745, 0.02)}, geometry.Options{})

	wards, err := counter.OverlappingWards(ctx, probe)
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "wd23-E05009997", wards[0].ID)

	// an L-shape whose bounding box overlaps Holywell while the
	// polygon itself wraps around its south-west corner
	near := geometry.FromWGS84([]orb.Ring{
		{
			{-1.255, 51.74},
			{-1.24, 51.74},
			{-1.24, 51.749},
			{-1.251, 51.749},
			{-1.251, 51.76},
			{-1.255, 51.76},
			{-1.255, 51.74},
		},
	}, geometry.Options{})
	nearby, err := counter.NearbyWards(near)
	require.NoError(t, err)
	assert.NotEmpty(t, nearby)
	wards, err = counter.OverlappingWards(ctx, near)
	require.NoError(t, err)
	assert.Empty(t, wards)
}

func TestPhonesForPolygons(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	// fully covers Carfax
	whole := geometry.FromWGS84([]orb.Ring{ringAround(-1.275, 51.745, 0.02)}, geometry.Options{})
	phones, err := counter.PhonesForPolygons(ctx, whole)
	require.NoError(t, err)
	assert.InDelta(t, 8000, phones, 50)

	// covers the western half of Carfax
	half := geometry.FromWGS84([]orb.Ring{
		{
			{-1.27, 51.75},
			{-1.265, 51.75},
			{-1.265, 51.76},
			{-1.27, 51.76},
			{-1.27, 51.75},
		},
	}, geometry.Options{})
	phones, err = counter.PhonesForPolygons(ctx, half)
	require.NoError(t, err)
	assert.InDelta(t, 4000, phones, 250)

	// nowhere near any ward
	far := geometry.FromWGS84([]orb.Ring{ringAround(2, 48, 0.01)}, geometry.Options{})
	phones, err = counter.PhonesForPolygons(ctx, far)
	require.NoError(t, err)
	assert.Zero(t, phones)
}

func TestPhonesForPolygons_Cancellation(t *testing.T) {
	counter, _ := newTestCounter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := geometry.FromWGS84([]orb.Ring{ringAround(-1.275, 51.745, 0.02)}, geometry.Options{})
	_, err := counter.PhonesForPolygons(ctx, probe)
	assert.ErrorIs(t, err, context.Canceled)
}
