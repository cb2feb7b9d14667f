package handler

import (
	"context"
	"net/http"

	"github.com/alertarea/alertarea/internal/api/models"
	"github.com/alertarea/alertarea/internal/api/response"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/population"
	"github.com/alertarea/alertarea/internal/validation"
)

// CustomAreaHandler serves custom area previews.
type CustomAreaHandler struct {
	builder *customarea.Builder
	counter *population.Counter
}

// NewCustomAreaHandler creates a new CustomAreaHandler.
func NewCustomAreaHandler(builder *customarea.Builder, counter *population.Counter) *CustomAreaHandler {
	return &CustomAreaHandler{builder: builder, counter: counter}
}

// Preview handles GET /v1/custom-areas/preview - render a custom area
// without creating anything. The centre comes from the postcode,
// latitude/longitude, or easting/northing query parameters.
func (h *CustomAreaHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec := models.CustomAreaSpec{
		Postcode:  q.Get("postcode"),
		Latitude:  q.Get("latitude"),
		Longitude: q.Get("longitude"),
		Easting:   q.Get("easting"),
		Northing:  q.Get("northing"),
		RadiusKm:  q.Get("radiusKm"),
	}

	area, err := resolveCustomArea(r.Context(), h.builder, spec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	phones, err := h.counter.PhonesForPolygons(r.Context(), area.Polygons())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	phones = float64(population.RoundToSignificantFigures(phones, 1))

	response.JSON(w, r, http.StatusOK, models.CustomAreaPreview{
		Name:          area.Name,
		CentreLat:     area.Centre.Lat(),
		CentreLon:     area.Centre.Lon(),
		RadiusKm:      area.RadiusKm,
		Polygons:      area.SimplePolygons().AsPairsLatLong(),
		AxisOrder:     broadcast.AxisOrderLatLong,
		CountOfPhones: phones,
	})
}

// resolveCustomArea validates one custom area spec and builds its disc.
func resolveCustomArea(ctx context.Context, b *customarea.Builder, spec models.CustomAreaSpec) (*customarea.Area, error) {
	radius, err := validation.ParseRadiusKm(spec.RadiusKm)
	if err != nil {
		return nil, err
	}

	switch {
	case spec.Postcode != "":
		postcode, err := validation.CanonicalPostcode(spec.Postcode)
		if err != nil {
			return nil, err
		}
		return b.FromPostcode(ctx, postcode, radius)

	case spec.Latitude != "" || spec.Longitude != "":
		lat, err := validation.ParseLatitude(spec.Latitude)
		if err != nil {
			return nil, err
		}
		lng, err := validation.ParseLongitude(spec.Longitude)
		if err != nil {
			return nil, err
		}
		return b.FromCoordinates(ctx, lat, lng, radius)

	case spec.Easting != "" || spec.Northing != "":
		easting, northing, err := validation.ParseEastingNorthing(spec.Easting, spec.Northing)
		if err != nil {
			return nil, err
		}
		return b.FromEastingNorthing(ctx, easting, northing, radius)

	default:
		return nil, &validation.ValidationError{
			Field:  "customAreas",
			Reason: "a postcode, coordinates, or an easting and northing are required",
		}
	}
}
