package entity

type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// RawDetection is one detector output in source-image pixel coordinates.
type RawDetection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

type EnrichedBox struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type EnrichedDetection struct {
	ClassName      string            `json:"class_name"`
	Confidence     float64           `json:"confidence"`
	Name           string            `json:"name"`
	Type           RecyclabilityType `json:"type"`
	Material       string            `json:"material"`
	Points         int               `json:"points"`
	Color          string            `json:"color"`
	DisposalMethod string            `json:"disposal_method"`
	Description    string            `json:"description"`
	BBox           EnrichedBox       `json:"bbox"`
}
