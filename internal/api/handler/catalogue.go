// Package handler provides HTTP handlers for the AlertArea API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alertarea/alertarea/internal/api/models"
	"github.com/alertarea/alertarea/internal/api/response"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/population"
)

// CatalogueHandler serves the area catalogue read endpoints.
type CatalogueHandler struct {
	store   *catalogue.Store
	counter *population.Counter
}

// NewCatalogueHandler creates a new CatalogueHandler.
func NewCatalogueHandler(store *catalogue.Store, counter *population.Counter) *CatalogueHandler {
	return &CatalogueHandler{store: store, counter: counter}
}

// ListLibraries handles GET /v1/libraries - list the area libraries.
func (h *CatalogueHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	metas, err := h.store.GetLibraries()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	items := make([]models.LibrarySummary, 0, len(metas))
	for _, m := range metas {
		items = append(items, librarySummary(m))
	}
	response.JSON(w, r, http.StatusOK, items)
}

// GetLibrary handles GET /v1/libraries/{libraryId} - a library with its areas.
func (h *CatalogueHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryId")

	lib, err := h.store.GetLibrary(libraryID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := models.Library{
		LibrarySummary: librarySummary(lib.LibraryMeta),
		Examples:       lib.Examples(),
		Areas:          make([]models.AreaSummary, 0, len(lib.Areas)),
	}
	for _, a := range lib.Areas {
		out.Areas = append(out.Areas, areaSummary(a))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// GetArea handles GET /v1/areas/{areaId} - one area with its phone count.
func (h *CatalogueHandler) GetArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaId")

	area, err := h.store.GetArea(areaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	phones, err := h.counter.PhonesForArea(area)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AreaDetail{
		AreaSummary:   areaSummary(area),
		CountOfPhones: float64(population.RoundToSignificantFigures(phones, 1)),
	})
}

// GetAreaPolygons handles GET /v1/areas/{areaId}/polygons - the
// broadcastable geometry of an area. Pass full=true for the unreduced
// boundary.
func (h *CatalogueHandler) GetAreaPolygons(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaId")

	area, err := h.store.GetArea(areaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	polys, err := area.SimplePolygons()
	if r.URL.Query().Get("full") == "true" {
		polys, err = area.Polygons()
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AreaPolygons{
		ID:        area.ID,
		Polygons:  polys.AsPairsLatLong(),
		AxisOrder: broadcast.AxisOrderLatLong,
	})
}

func librarySummary(m catalogue.LibraryMeta) models.LibrarySummary {
	return models.LibrarySummary{
		ID:           m.ID,
		Name:         m.Name,
		NameSingular: m.NameSingular,
		IsGroup:      m.IsGroup,
	}
}

func areaSummary(a *catalogue.Area) models.AreaSummary {
	return models.AreaSummary{
		ID:          a.ID,
		Name:        a.Name,
		DisplayName: a.DisplayName(),
		LibraryID:   a.LibraryID,
		ParentID:    a.ParentID,
	}
}
