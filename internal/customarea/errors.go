package customarea

import "fmt"

// OutOfBoundsError reports a requested centre that falls outside the
// United Kingdom and every configured test area.
type OutOfBoundsError struct {
	Lat float64
	Lng float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("customarea: centre %.6f, %.6f is outside the UK", e.Lat, e.Lng)
}

// RadiusRangeError reports a radius outside the broadcastable range.
type RadiusRangeError struct {
	RadiusKm float64
	MinKm    float64
	MaxKm    float64
}

func (e *RadiusRangeError) Error() string {
	return fmt.Sprintf(
		"customarea: radius %.2fkm outside the allowed range %.1f-%.1fkm",
		e.RadiusKm, e.MinKm, e.MaxKm,
	)
}
