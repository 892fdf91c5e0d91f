package detectionHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"time"
	detectionService "trashiq/internal/api/detection/service"
	"trashiq/internal/middleware"
	"trashiq/pkg/utils"
)

const defaultDetectTimeout = 30 * time.Second

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	timeout          time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	timeout time.Duration,
) *DetectionHandler {
	if timeout <= 0 {
		timeout = defaultDetectTimeout
	}
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		timeout:          timeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Get("/", h.Home)
	srv.Get("/health", h.Health)
	srv.Get("/classes", h.Classes)

	srv.Post("/detect", h.Detect)
	srv.Use("/detect/ws", wsMiddleware)
	srv.Get("/detect/ws", websocket.New(h.handleDetectWebSocket))
}
