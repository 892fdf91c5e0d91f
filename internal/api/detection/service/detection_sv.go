package detectionService

import (
	"errors"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
	"strconv"
	"trashiq/internal/api/detection"
	"trashiq/internal/entity"
	"trashiq/pkg/detector"
	"trashiq/pkg/log"
	"trashiq/pkg/response"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *detectionService) Detect(ctx context.Context, base64Image string) (*detection.DetectResult, error) {
	if !s.detector.Ready() {
		return nil, detection.ErrModelNotLoaded
	}

	image, err := s.utils.DecodeBase64Image(base64Image)
	if err != nil {
		return nil, response.Wrap(detection.ErrInvalidImage, err)
	}

	return s.DetectImage(ctx, image)
}

func (s *detectionService) DetectImage(ctx context.Context, image []byte) (*detection.DetectResult, error) {
	if !s.detector.Ready() {
		return nil, detection.ErrModelNotLoaded
	}

	mimeType, err := s.utils.ValidateImageBytes(image)
	if err != nil {
		return nil, response.Wrap(detection.ErrInvalidImage, err)
	}

	cacheKey := s.cacheKey(image)
	if result, ok := s.cachedResult(ctx, cacheKey); ok {
		return result, nil
	}

	raw, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, s.classifyDetectorError(err)
	}

	result := s.pipeline.Run(raw)

	log.WithRequestID(s.log, ctx).WithFields(log.Fields{
		"mime_type":  mimeType,
		"raw":        len(raw),
		"kept":       result.Total,
		"threshold":  s.pipeline.Threshold(),
		"image_size": len(image),
	}).Debug("Detection pipeline finished")

	s.storeResult(ctx, cacheKey, result)
	return result, nil
}

func (s *detectionService) classifyDetectorError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, detector.ErrModelNotLoaded):
		return detection.ErrModelNotLoaded
	case errors.Is(err, detector.ErrInvalidImage):
		return response.Wrap(detection.ErrInvalidImage, err)
	default:
		return response.Wrap(detection.ErrInference, err)
	}
}

func (s *detectionService) cacheKey(image []byte) string {
	return fmt.Sprintf("%s:%s", s.utils.HashImage(image), strconv.FormatFloat(s.pipeline.Threshold(), 'f', -1, 64))
}

func (s *detectionService) cachedResult(ctx context.Context, key string) (*detection.DetectResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, ok, err := s.cache.GetResult(ctx, key)
	if err != nil {
		log.WithRequestID(s.log, ctx).WithField("error", err.Error()).Warn("Result cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var result detection.DetectResult
	if err := json.Unmarshal(payload, &result); err != nil {
		log.WithRequestID(s.log, ctx).WithField("error", err.Error()).Warn("Discarding unreadable cache entry")
		return nil, false
	}
	return &result, true
}

func (s *detectionService) storeResult(ctx context.Context, key string, result *detection.DetectResult) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.WithRequestID(s.log, ctx).WithField("error", err.Error()).Warn("Failed to encode result for cache")
		return
	}
	if err := s.cache.SetResult(ctx, key, payload); err != nil {
		log.WithRequestID(s.log, ctx).WithField("error", err.Error()).Warn("Result cache store failed")
	}
}

func (s *detectionService) Status() detection.ModelStatus {
	classes := s.detector.Classes()
	if classes == nil {
		classes = []string{}
	}
	return detection.ModelStatus{
		Loaded:  s.detector.Ready(),
		Classes: classes,
	}
}

func (s *detectionService) Categories() *entity.CategoryTable {
	return s.categories
}
