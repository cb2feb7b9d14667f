package models

// BroadcastCreateRequest creates a draft broadcast from a selection of
// catalogue areas and custom areas.
type BroadcastCreateRequest struct {
	Reference     string           `json:"reference"`
	Content       string           `json:"content"`
	AreaIDs       []string         `json:"areaIds"`
	CustomAreas   []CustomAreaSpec `json:"customAreas,omitempty"`
	ForceOverride bool             `json:"forceOverride"`
}

// BroadcastSelectionRequest replaces the selection of an editable
// broadcast.
type BroadcastSelectionRequest struct {
	AreaIDs     []string         `json:"areaIds"`
	CustomAreas []CustomAreaSpec `json:"customAreas,omitempty"`
}

// BroadcastContentRequest replaces the message content of an editable
// broadcast.
type BroadcastContentRequest struct {
	Content string `json:"content"`
}

// Broadcast is the API form of a broadcast record.
type Broadcast struct {
	ID                  string        `json:"id"`
	Reference           string        `json:"reference"`
	Content             string        `json:"content"`
	Status              string        `json:"status"`
	AreaIDs             []string      `json:"areaIds"`
	AreaNames           []string      `json:"areaNames"`
	AggregateNames      []string      `json:"aggregateNames"`
	SimplePolygons      [][][]float64 `json:"simplePolygons"`
	AxisOrder           string        `json:"axisOrder"`
	ForceOverride       bool          `json:"forceOverride"`
	Drifted             bool          `json:"drifted"`
	CountOfPhones       float64       `json:"countOfPhones"`
	CountOfPhonesLikely float64       `json:"countOfPhonesLikely"`
	CreatedAt           Timestamp     `json:"createdAt"`
	UpdatedAt           Timestamp     `json:"updatedAt"`
}

// PagedBroadcasts is a list of broadcasts.
type PagedBroadcasts struct {
	Items []Broadcast `json:"items"`
}
