package detection

import "trashiq/internal/entity"

type DetectRequest struct {
	Image string `json:"image" validate:"required"`
}

// DetectResult is the pipeline outcome. An empty result is a successful call
// with nothing above the confidence threshold.
type DetectResult struct {
	Best       *entity.EnrichedDetection  `json:"best,omitempty"`
	Detections []entity.EnrichedDetection `json:"detections"`
	Total      int                        `json:"total"`
}

func (r *DetectResult) Found() bool {
	return r != nil && r.Total > 0
}

type DetectSuccessResponse struct {
	Success         bool                       `json:"success"`
	Detection       entity.EnrichedDetection   `json:"detection"`
	AllDetections   []entity.EnrichedDetection `json:"all_detections"`
	TotalDetections int                        `json:"total_detections"`
	ModelClasses    []string                   `json:"model_classes"`
}

type DetectEmptyResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	ModelClasses []string `json:"model_classes"`
}

const NoDetectionsMessage = "No trash items detected with sufficient confidence"

type ModelStatus struct {
	Loaded  bool
	Classes []string
}

type HomeResponse struct {
	Message            string            `json:"message"`
	Status             string            `json:"status"`
	ModelLoaded        bool              `json:"model_loaded"`
	AvailableEndpoints map[string]string `json:"available_endpoints"`
	ModelClasses       []string          `json:"model_classes"`
	TotalClasses       int               `json:"total_classes"`
}

type HealthResponse struct {
	Status       string   `json:"status"`
	ModelLoaded  bool     `json:"model_loaded"`
	ModelClasses []string `json:"model_classes"`
	TotalClasses int      `json:"total_classes"`
}

type ClassesResponse struct {
	Classes    []string                        `json:"classes"`
	Categories map[string]entity.CategoryEntry `json:"categories"`
}

const (
	StatusHealthy        = "healthy"
	StatusModelNotLoaded = "model_not_loaded"
)
