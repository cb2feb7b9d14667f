package models

// CustomAreaSpec describes one requested custom area. Exactly one of
// the postcode, latitude/longitude, or easting/northing groups must be
// set. Numeric fields are strings so precision limits apply to what the
// caller actually typed.
type CustomAreaSpec struct {
	Postcode  string `json:"postcode,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
	Easting   string `json:"easting,omitempty"`
	Northing  string `json:"northing,omitempty"`
	RadiusKm  string `json:"radiusKm"`
}

// CustomAreaPreview is the rendered form of a requested custom area.
type CustomAreaPreview struct {
	Name          string        `json:"name"`
	CentreLat     float64       `json:"centreLat"`
	CentreLon     float64       `json:"centreLon"`
	RadiusKm      float64       `json:"radiusKm"`
	Polygons      [][][]float64 `json:"polygons"`
	AxisOrder     string        `json:"axisOrder"`
	CountOfPhones float64       `json:"countOfPhones"`
}
