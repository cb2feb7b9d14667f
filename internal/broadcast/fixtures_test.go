package broadcast_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
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

type harness struct {
	store    *catalogue.Store
	counter  *population.Counter
	composer *broadcast.Composer
	builder  *customarea.Builder
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithNaiveArea(t, 0)
}

// newHarnessWithNaiveArea builds a catalogue of one country, one
// county, one authority and two wards, plus the composition stack on
// top of it.
func newHarnessWithNaiveArea(t *testing.T, naiveAreaM2 float64) *harness {
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
		phones                    float64
		ring                      orb.Ring
	}{
		{"ctry19-E92000001", "England", "ctry19", "", 4e7, ringAround(-6, 50, 7)},
		{"ctyua23-E10000025", "Oxfordshire", "ctyua23", "", 500000, ringAround(-1.5, 51.6, 0.6)},
		{"lad23-E07000178", "Oxford", "lad23", "ctyua23-E10000025", 120000, ringAround(-1.3, 51.7, 0.1)},
		{"wd23-E05009997", "Carfax", "wd23", "lad23-E07000178", 8000, ringAround(-1.27, 51.75, 0.01)},
		{"wd23-E05009998", "Holywell", "wd23", "lad23-E07000178", 7000, ringAround(-1.26, 51.75, 0.01)},
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
	aggregator := aggregate.New(aggregate.Config{Store: store, Counter: counter})
	composer := broadcast.NewComposer(broadcast.ComposerConfig{
		Store:               store,
		Counter:             counter,
		Aggregator:          aggregator,
		NaiveEstimateAreaM2: naiveAreaM2,
	})
	builder := customarea.NewBuilder(customarea.Config{Store: store, Index: index})
	return &harness{store: store, counter: counter, composer: composer, builder: builder}
}

func (h *harness) selection(t *testing.T, ids ...string) aggregate.Selection {
	t.Helper()
	areas, err := h.store.GetAreas(ids)
	require.NoError(t, err)
	require.Len(t, areas, len(ids))
	return aggregate.Selection{Areas: areas}
}
