package detector

import (
	"fmt"
	"sort"

	"trashiq/internal/entity"
)

const (
	DefaultInputSize    = 640
	DefaultMinScore     = 0.25
	DefaultNMSThreshold = 0.7
)

// YOLOOutput is the raw [1, 4+nc, anchors] tensor of a YOLOv8 export,
// flattened row-major.
type YOLOOutput struct {
	Data        []float32
	Channels    int
	Anchors     int
	InputSize   int
	ImageWidth  int
	ImageHeight int
}

type PostProcessConfig struct {
	MinScore     float64
	NMSThreshold float64
}

func DefaultPostProcessConfig() PostProcessConfig {
	return PostProcessConfig{
		MinScore:     DefaultMinScore,
		NMSThreshold: DefaultNMSThreshold,
	}
}

type candidate struct {
	class int
	score float64
	box   entity.BoundingBox
}

// DecodeYOLO turns the raw tensor into detections in source-image pixels.
func DecodeYOLO(out YOLOOutput, classes []string, cfg PostProcessConfig) ([]entity.RawDetection, error) {
	numClasses := out.Channels - 4
	if numClasses <= 0 {
		return nil, fmt.Errorf("unexpected output shape: %d channels", out.Channels)
	}
	if len(out.Data) < out.Channels*out.Anchors {
		return nil, fmt.Errorf("output too short: have %d values, want %d", len(out.Data), out.Channels*out.Anchors)
	}
	if out.InputSize <= 0 || out.ImageWidth <= 0 || out.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid geometry: input %d, image %dx%d", out.InputSize, out.ImageWidth, out.ImageHeight)
	}

	sx := float64(out.ImageWidth) / float64(out.InputSize)
	sy := float64(out.ImageHeight) / float64(out.InputSize)
	at := func(ch, i int) float64 {
		return float64(out.Data[ch*out.Anchors+i])
	}

	var cands []candidate
	for i := 0; i < out.Anchors; i++ {
		best, bestScore := -1, 0.0
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < cfg.MinScore {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		box := entity.BoundingBox{
			X1: clamp((cx-w/2)*sx, 0, float64(out.ImageWidth)),
			Y1: clamp((cy-h/2)*sy, 0, float64(out.ImageHeight)),
			X2: clamp((cx+w/2)*sx, 0, float64(out.ImageWidth)),
			Y2: clamp((cy+h/2)*sy, 0, float64(out.ImageHeight)),
		}
		cands = append(cands, candidate{class: best, score: bestScore, box: box})
	}

	kept := nonMaxSuppression(cands, cfg.NMSThreshold)

	detections := make([]entity.RawDetection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, entity.RawDetection{
			Label:      labelFor(classes, c.class),
			Confidence: c.score,
			Box:        c.box,
		})
	}
	return detections, nil
}

// nonMaxSuppression keeps the highest-scoring box of every overlapping group
// within the same class.
func nonMaxSuppression(cands []candidate, iouThreshold float64) []candidate {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score > sorted[j].score
	})

	suppressed := make([]bool, len(sorted))
	var kept []candidate
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].class != sorted[i].class {
				continue
			}
			if IoU(sorted[i].box, sorted[j].box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func IoU(a, b entity.BoundingBox) float64 {
	ix1, iy1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	ix2, iy2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func labelFor(classes []string, idx int) string {
	if idx >= 0 && idx < len(classes) {
		return classes[idx]
	}
	return fmt.Sprintf("class_%d", idx)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
