package detectionService

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"trashiq/internal/api/detection"
	"trashiq/internal/entity"
	"trashiq/pkg/detector"
	"trashiq/pkg/redis"
	"trashiq/pkg/utils"
)

type IDetectionService interface {
	Detect(ctx context.Context, base64Image string) (*detection.DetectResult, error)
	DetectImage(ctx context.Context, image []byte) (*detection.DetectResult, error)
	Status() detection.ModelStatus
	Categories() *entity.CategoryTable
}

type detectionService struct {
	log        *logrus.Logger
	detector   detector.Detector
	pipeline   *Pipeline
	categories *entity.CategoryTable
	cache      redis.IRedis
	utils      utils.IUtils
}

// NewDetectionService wires the loaded model to the pipeline. cache may be nil.
func NewDetectionService(
	log *logrus.Logger,
	det detector.Detector,
	categories *entity.CategoryTable,
	cache redis.IRedis,
	utils utils.IUtils,
	threshold float64,
) IDetectionService {
	return &detectionService{
		log:        log,
		detector:   det,
		pipeline:   NewPipeline(categories, threshold),
		categories: categories,
		cache:      cache,
		utils:      utils,
	}
}
