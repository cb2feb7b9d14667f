package models

// LibrarySummary describes one area library in a catalogue listing.
type LibrarySummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NameSingular string `json:"nameSingular"`
	IsGroup      bool   `json:"isGroup"`
}

// Library is a library with its member areas.
type Library struct {
	LibrarySummary
	Examples string        `json:"examples,omitempty"`
	Areas    []AreaSummary `json:"areas"`
}

// AreaSummary describes one catalogue area without its geometry.
type AreaSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	LibraryID   string `json:"libraryId"`
	ParentID    string `json:"parentId,omitempty"`
}

// AreaDetail is an area with its estimated phone count.
type AreaDetail struct {
	AreaSummary
	CountOfPhones float64 `json:"countOfPhones"`
}

// AreaPolygons carries the broadcastable geometry of an area.
// Rings hold coordinate pairs in the order named by AxisOrder.
type AreaPolygons struct {
	ID        string        `json:"id"`
	Polygons  [][][]float64 `json:"polygons"`
	AxisOrder string        `json:"axisOrder"`
}
