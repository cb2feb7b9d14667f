package catalogue

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/alertarea/alertarea/internal/geometry"
)

// Store is the read-only, file-backed area catalogue. It is safe for
// concurrent readers; nothing mutates it after Open returns. If the
// underlying file changes a restart is required.
type Store struct {
	db   *sql.DB
	path string
	opts geometry.Options
}

// Open opens the catalogue file and verifies its layout. Any failure is
// returned as a CatalogueError and should abort startup.
func Open(path string, opts geometry.Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &CatalogueError{Path: path, Err: err}
	}

	s := &Store{db: db, path: path, opts: opts}
	for _, table := range []string{"libraries", "areas", "area_bboxes"} {
		var n int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			db.Close()
			return nil, &CatalogueError{Path: path, Err: fmt.Errorf("table %s: %w", table, err)}
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Options returns the polygon pipeline parameters the store builds
// PolygonSets with.
func (s *Store) Options() geometry.Options {
	return s.opts
}

// GetLibraries returns metadata for every library, sorted by name.
func (s *Store) GetLibraries() ([]LibraryMeta, error) {
	rows, err := s.db.Query(
		"SELECT id, name, name_singular, is_group FROM libraries ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []LibraryMeta
	for rows.Next() {
		var m LibraryMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.NameSingular, &m.IsGroup); err != nil {
			return nil, err
		}
		libs = append(libs, m)
	}
	return libs, rows.Err()
}

// GetLibrary returns a library with all its areas, sorted by area name.
func (s *Store) GetLibrary(id string) (*Library, error) {
	var meta LibraryMeta
	err := s.db.QueryRow(
		"SELECT id, name, name_singular, is_group FROM libraries WHERE id = ?", id,
	).Scan(&meta.ID, &meta.Name, &meta.NameSingular, &meta.IsGroup)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	areas, err := s.queryAreas(
		"SELECT id, name, library_id, parent_id, count_of_phones, utm_crs FROM areas WHERE library_id = ? ORDER BY name", id,
	)
	if err != nil {
		return nil, err
	}
	return &Library{LibraryMeta: meta, Areas: areas}, nil
}

// GetArea returns a single area by id.
func (s *Store) GetArea(id string) (*Area, error) {
	areas, err := s.GetAreas([]string{id})
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return nil, &NotFoundError{ID: id}
	}
	return areas[0], nil
}

// GetAreas returns the areas for the given ids, preserving input order.
// Ids not present in the catalogue are omitted; callers detect the
// length mismatch and treat the selection as custom.
func (s *Store) GetAreas(ids []string) ([]*Area, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found, err := s.queryAreas(
		"SELECT id, name, library_id, parent_id, count_of_phones, utm_crs FROM areas WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Area, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	ordered := make([]*Area, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

// GetParentForArea returns the parent of the given area, or nil when
// the area has no parent link.
func (s *Store) GetParentForArea(id string) (*Area, error) {
	areas, err := s.queryAreas(
		`SELECT p.id, p.name, p.library_id, p.parent_id, p.count_of_phones, p.utm_crs
		 FROM areas a JOIN areas p ON p.id = a.parent_id
		 WHERE a.id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return nil, nil
	}
	return areas[0], nil
}

// GetAllAreasForGroup returns the children of a group area, e.g. the
// wards of a local authority.
func (s *Store) GetAllAreasForGroup(parentID string) ([]*Area, error) {
	return s.queryAreas(
		"SELECT id, name, library_id, parent_id, count_of_phones, utm_crs FROM areas WHERE parent_id = ? ORDER BY name",
		parentID,
	)
}

// PolygonsForArea loads the full-resolution polygon blob for an area.
func (s *Store) PolygonsForArea(id string) (*geometry.PolygonSet, error) {
	return s.loadPolygons(id, "polygons")
}

// SimplePolygonsForArea loads the simplified polygon blob for an area.
func (s *Store) SimplePolygonsForArea(id string) (*geometry.PolygonSet, error) {
	return s.loadPolygons(id, "simple_polygons")
}

// WardBBoxes streams every ward-level bounding box, used to seed the
// spatial index at startup.
func (s *Store) WardBBoxes() ([]BBoxEntry, error) {
	rows, err := s.db.Query(
		`SELECT b.id, b.min_x, b.min_y, b.max_x, b.max_y
		 FROM area_bboxes b
		 WHERE b.id LIKE 'wd%'`,
	)
	if err != nil {
		return nil, &CatalogueError{Path: s.path, Err: err}
	}
	defer rows.Close()

	var entries []BBoxEntry
	for rows.Next() {
		var e BBoxEntry
		if err := rows.Scan(&e.AreaID, &e.MinX, &e.MinY, &e.MaxX, &e.MaxY); err != nil {
			return nil, &CatalogueError{Path: s.path, Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogueError{Path: s.path, Err: err}
	}
	return entries, nil
}

func (s *Store) loadPolygons(id, column string) (*geometry.PolygonSet, error) {
	var blob []byte
	var utmCRS int
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT %s, utm_crs FROM areas WHERE id = ?", column), id,
	).Scan(&blob, &utmCRS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	rings, err := DecodePolygons(blob)
	if err != nil {
		return nil, &CatalogueError{Path: s.path, Err: fmt.Errorf("area %s %s: %w", id, column, err)}
	}
	return geometry.New(rings, geometry.WGS84, geometry.CRS(utmCRS), s.opts), nil
}

func (s *Store) queryAreas(query string, args ...any) ([]*Area, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*Area
	for rows.Next() {
		var a Area
		var parentID sql.NullString
		var phones sql.NullFloat64
		var utmCRS sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &a.LibraryID, &parentID, &phones, &utmCRS); err != nil {
			return nil, err
		}
		a.ParentID = parentID.String
		a.RawPhoneCount = phones.Float64
		a.UTMCRS = geometry.CRS(utmCRS.Int64)
		a.store = s
		areas = append(areas, &a)
	}
	return areas, rows.Err()
}
