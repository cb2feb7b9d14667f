// Package catalogue provides the read-only store of named broadcast
// areas, organised into libraries, together with the ward-level spatial
// index. The catalogue is loaded once at startup and treated as
// immutable shared state for the lifetime of the process.
package catalogue

import (
	"fmt"
	"strings"

	"github.com/alertarea/alertarea/internal/geometry"
)

// NotFoundError reports an area id missing from the catalogue.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("area %q not found in catalogue", e.ID)
}

// CatalogueError reports a corrupt or missing catalogue file. It is
// fatal at startup; there is no hot reload.
type CatalogueError struct {
	Path string
	Err  error
}

func (e *CatalogueError) Error() string {
	return fmt.Sprintf("catalogue %s: %v", e.Path, e.Err)
}

func (e *CatalogueError) Unwrap() error { return e.Err }

// LibraryMeta describes a library without its areas.
type LibraryMeta struct {
	ID           string
	Name         string
	NameSingular string
	IsGroup      bool
}

// Library is a named collection of areas. IsGroup marks hierarchical
// libraries (ward / local authority / upper-tier authority); a library
// is a flat list when IsGroup is false.
type Library struct {
	LibraryMeta
	Areas []*Area
}

// Examples returns a short display line naming up to four areas, with
// an "N more…" suffix when the library is larger.
func (l *Library) Examples() string {
	names := make([]string, 0, len(l.Areas))
	for _, a := range l.Areas {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return ""
	}

	show := names
	if len(show) > 4 {
		show = show[:4]
	}
	notNamed := len(names) - 3
	if notNamed > 1 {
		show = append(show[:3], fmt.Sprintf("%d more…", notNamed))
	}
	if len(show) == 1 {
		return show[0]
	}
	return strings.Join(show[:len(show)-1], ", ") + " and " + show[len(show)-1]
}

// Area is an immutable catalogue record. Polygon blobs are loaded
// lazily through the owning store and memoised on the record.
type Area struct {
	ID            string
	Name          string
	LibraryID     string
	ParentID      string
	RawPhoneCount float64
	UTMCRS        geometry.CRS

	store          *Store
	polygons       *geometry.PolygonSet
	simplePolygons *geometry.PolygonSet
}

// Area id prefixes climb the administrative hierarchy.
const (
	prefixWard        = "wd"
	prefixLowerTier   = "lad"
	prefixUpperTier   = "ctyua"
	prefixCountry     = "ctry"
	prefixPoliceForce = "pfa"
	prefixPostcode    = "postcodes"
	prefixREPPIRSite  = "reppir"
)

// PostcodeAreaID returns the catalogue id of a postcode unit area. The
// postcode must already be in canonical form (uppercase, single space).
func PostcodeAreaID(postcode string) string {
	return prefixPostcode + "-" + postcode
}

// IsElectoralWard reports whether the area is an electoral ward, the
// finest granularity for which population data exists.
func (a *Area) IsElectoralWard() bool {
	return strings.HasPrefix(a.ID, prefixWard)
}

// IsLowerTierLocalAuthority reports whether the area is a lower-tier
// local authority that sits under an upper-tier parent.
func (a *Area) IsLowerTierLocalAuthority() bool {
	return strings.HasPrefix(a.ID, prefixLowerTier) && a.ParentID != ""
}

// IsUpperTierAuthority reports whether the area is an upper-tier local
// authority.
func (a *Area) IsUpperTierAuthority() bool {
	return strings.HasPrefix(a.ID, prefixUpperTier)
}

// IsCountry reports whether the area is one of the four UK countries.
func (a *Area) IsCountry() bool {
	return strings.HasPrefix(a.ID, prefixCountry)
}

// IsPoliceForceArea reports whether the area is a police-force area.
func (a *Area) IsPoliceForceArea() bool {
	return strings.HasPrefix(a.ID, prefixPoliceForce)
}

// IsPostcodeArea reports whether the area is a postcode unit.
func (a *Area) IsPostcodeArea() bool {
	return strings.HasPrefix(a.ID, prefixPostcode)
}

// IsREPPIRSite reports whether the area is a REPPIR DEPZ site, the
// detailed emergency planning zone around a nuclear installation. Its
// parent is the local authority the site sits in.
func (a *Area) IsREPPIRSite() bool {
	return strings.HasPrefix(a.ID, prefixREPPIRSite)
}

// FormatName rewrites official names whose qualifier trails after a
// comma, so "Bristol, City of" renders as "City of Bristol".
func FormatName(name string) string {
	i := strings.LastIndex(name, ", ")
	if i < 0 {
		return name
	}
	qualifier := name[i+2:]
	if !strings.HasSuffix(qualifier, " of") {
		return name
	}
	return qualifier + " " + name[:i]
}

// DisplayName returns the area name formatted for display.
func (a *Area) DisplayName() string {
	return FormatName(a.Name)
}

// Code returns the ONS code part of the id, the text after the library
// slug (e.g. "E05009372" for "wd23-E05009372").
func (a *Area) Code() string {
	if i := strings.IndexByte(a.ID, '-'); i >= 0 {
		return a.ID[i+1:]
	}
	return a.ID
}

// Polygons returns the full-resolution polygons for the area, loading
// the blob on first use.
func (a *Area) Polygons() (*geometry.PolygonSet, error) {
	if a.polygons == nil {
		p, err := a.store.PolygonsForArea(a.ID)
		if err != nil {
			return nil, err
		}
		a.polygons = p
	}
	return a.polygons, nil
}

// SimplePolygons returns the simplified polygons used for display and
// broadcast payloads, loading the blob on first use.
func (a *Area) SimplePolygons() (*geometry.PolygonSet, error) {
	if a.simplePolygons == nil {
		p, err := a.store.SimplePolygonsForArea(a.ID)
		if err != nil {
			return nil, err
		}
		a.simplePolygons = p
	}
	return a.simplePolygons, nil
}

// Parent returns the area one step up the hierarchy, or nil when the
// area has no parent.
func (a *Area) Parent() (*Area, error) {
	if a.ParentID == "" {
		return nil, nil
	}
	return a.store.GetParentForArea(a.ID)
}

// Ancestors returns the parent chain from the immediate parent upward.
func (a *Area) Ancestors() ([]*Area, error) {
	var chain []*Area
	current := a
	for {
		parent, err := current.Parent()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return chain, nil
		}
		chain = append(chain, parent)
		current = parent
	}
}

// SubAreas returns the children of a group area, e.g. the wards of a
// local authority.
func (a *Area) SubAreas() ([]*Area, error) {
	return a.store.GetAllAreasForGroup(a.ID)
}
