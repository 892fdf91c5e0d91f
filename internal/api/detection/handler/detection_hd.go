package detectionHandler

import (
	"errors"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"trashiq/internal/api/detection"
	contextPkg "trashiq/pkg/context"
	"trashiq/pkg/handlerUtil"
	"trashiq/pkg/log"
	"trashiq/pkg/response"
)

func (h *DetectionHandler) Home(ctx *fiber.Ctx) error {
	status := h.detectionService.Status()

	return ctx.JSON(detection.HomeResponse{
		Message:     "TrashIQ Detection Server is running!",
		Status:      detection.StatusHealthy,
		ModelLoaded: status.Loaded,
		AvailableEndpoints: map[string]string{
			"health":  "/health",
			"detect":  "/detect (POST)",
			"classes": "/classes",
		},
		ModelClasses: status.Classes,
		TotalClasses: len(status.Classes),
	})
}

func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	status := h.detectionService.Status()

	health := detection.StatusHealthy
	if !status.Loaded {
		health = detection.StatusModelNotLoaded
	}

	return ctx.JSON(detection.HealthResponse{
		Status:       health,
		ModelLoaded:  status.Loaded,
		ModelClasses: status.Classes,
		TotalClasses: len(status.Classes),
	})
}

func (h *DetectionHandler) Classes(ctx *fiber.Ctx) error {
	categories := h.detectionService.Categories()

	return ctx.JSON(detection.ClassesResponse{
		Classes:    categories.Labels(),
		Categories: categories.Entries(),
	})
}

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if !h.detectionService.Status().Loaded {
		return errHandler.Handle(ctx, requestID, detection.ErrModelNotLoaded, ctx.Path(), "check_model")
	}

	var (
		result *detection.DetectResult
		err    error
	)

	file, fileErr := ctx.FormFile("image")
	if fileErr == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, wrapInvalidImage(err), ctx.Path(), "validate_image_file")
		}

		image, readErr := h.utils.ReadImageFile(file)
		if readErr != nil {
			return errHandler.Handle(ctx, requestID, wrapInvalidImage(readErr), ctx.Path(), "read_image_file")
		}

		result, err = h.detectionService.DetectImage(c, image)
	} else {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
		}).Debug("Processing JSON request")

		var req detection.DetectRequest
		if len(ctx.Body()) == 0 {
			return errHandler.Handle(ctx, requestID, detection.ErrNoImageData, ctx.Path(), "parse_request_body")
		}
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrInvalidRequestBody, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path(), detection.ErrNoImageData)
		}

		result, err = h.detectionService.Detect(c, req.Image)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errHandler.HandleRequestTimeout(ctx)
	}
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"total":      result.Total,
		}).Info("Detection finished")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.detectResponse(result))
	}
}

// detectResponse shapes a pipeline result the way existing clients expect.
// model_classes lists the category table, not the model's own labels.
func (h *DetectionHandler) detectResponse(result *detection.DetectResult) interface{} {
	labels := h.detectionService.Categories().Labels()

	if !result.Found() {
		return detection.DetectEmptyResponse{
			Success:      false,
			Message:      detection.NoDetectionsMessage,
			ModelClasses: labels,
		}
	}

	return detection.DetectSuccessResponse{
		Success:         true,
		Detection:       *result.Best,
		AllDetections:   result.Detections,
		TotalDetections: result.Total,
		ModelClasses:    labels,
	}
}

func wrapInvalidImage(err error) error {
	return response.Wrap(detection.ErrInvalidImage, err)
}
