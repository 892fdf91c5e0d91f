package detectionService

import (
	"sort"
	"strconv"

	"trashiq/internal/api/detection"
	"trashiq/internal/entity"
)

// DefaultConfidenceThreshold is exclusive: a detection must score strictly above it.
const DefaultConfidenceThreshold = 0.3

const (
	confidencePlaces = 3
	boxPlaces        = 2
)

type Pipeline struct {
	categories *entity.CategoryTable
	threshold  float64
}

func NewPipeline(categories *entity.CategoryTable, threshold float64) *Pipeline {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Pipeline{
		categories: categories,
		threshold:  threshold,
	}
}

func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Run filters, enriches and orders raw detections. It never fails; no
// detections above the threshold yields an empty result.
func (p *Pipeline) Run(raw []entity.RawDetection) *detection.DetectResult {
	enriched := make([]entity.EnrichedDetection, 0, len(raw))
	for _, r := range raw {
		if r.Confidence <= p.threshold {
			continue
		}
		enriched = append(enriched, Enrich(r, p.categories.Lookup(r.Label)))
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].Confidence > enriched[j].Confidence
	})

	result := &detection.DetectResult{
		Detections: enriched,
		Total:      len(enriched),
	}
	if len(enriched) > 0 {
		best := enriched[0]
		result.Best = &best
	}
	return result
}

// Enrich joins one detection with its category entry. Width and height come
// from the unrounded coordinates.
func Enrich(r entity.RawDetection, lookup entity.CategoryLookup) entity.EnrichedDetection {
	c := lookup.Entry
	return entity.EnrichedDetection{
		ClassName:      r.Label,
		Confidence:     roundTo(r.Confidence, confidencePlaces),
		Name:           c.Name,
		Type:           c.Type,
		Material:       c.Material,
		Points:         c.Points,
		Color:          c.Color,
		DisposalMethod: c.DisposalMethod,
		Description:    c.Description,
		BBox: entity.EnrichedBox{
			X1:     roundTo(r.Box.X1, boxPlaces),
			Y1:     roundTo(r.Box.Y1, boxPlaces),
			X2:     roundTo(r.Box.X2, boxPlaces),
			Y2:     roundTo(r.Box.Y2, boxPlaces),
			Width:  roundTo(r.Box.Width(), boxPlaces),
			Height: roundTo(r.Box.Height(), boxPlaces),
		},
	}
}

// roundTo rounds the exact binary value half-to-even at the given decimal place.
func roundTo(v float64, places int) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return out
}
