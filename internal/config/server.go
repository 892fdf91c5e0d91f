package config

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"time"
	detectionHandler "trashiq/internal/api/detection/handler"
	detectionService "trashiq/internal/api/detection/service"
	"trashiq/internal/config/env"
	"trashiq/internal/entity"
	"trashiq/internal/middleware"
	"trashiq/pkg/detector"
	"trashiq/pkg/redis"
	"trashiq/pkg/utils"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	cfg        *env.Config
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	categories *entity.CategoryTable
	detector   detector.Detector
	cache      redis.IRedis
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithConfig(cfg *env.Config) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithCategoryTable() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("config must be set before the category table")
		}
		table, err := entity.LoadCategoryTable(s.cfg.CategoryTablePath)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to load category table: %v", err)
			}
			return fmt.Errorf("failed to load category table: %w", err)
		}
		s.categories = table
		return nil
	}
}

// WithDetector loads the model. A load failure degrades the server instead of
// aborting startup.
func WithDetector() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil || s.log == nil || s.categories == nil {
			return fmt.Errorf("config, logger and category table must be set before the detector")
		}
		s.detector = LoadDetector(s.cfg, s.log, s.categories)
		return nil
	}
}

func WithDetectorInstance(det detector.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = det
		return nil
	}
}

// WithResultCache connects to Redis when configured. An unreachable Redis
// only disables caching.
func WithResultCache() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil || !s.cfg.CacheEnabled() {
			return nil
		}
		cache, err := redis.New(redis.Config{
			Address:  s.cfg.RedisAddress,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
			TTL:      s.cfg.CacheTTL,
		}, s.log)
		if err != nil {
			s.log.Warnf("Result cache disabled: %v", err)
			return nil
		}
		s.cache = cache
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		limit := int64(50 * 1024 * 1024)
		if s.cfg != nil && s.cfg.BodyLimitMB > 0 {
			limit = int64(s.cfg.BodyLimitMB) * 1024 * 1024
		}
		s.utils = utils.NewWithLimit(limit)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.categories == nil {
		s.categories = entity.DefaultCategoryTable()
	}
	if s.utils == nil {
		s.utils = utils.New()
	}
	if s.validator == nil {
		s.validator = NewValidator()
	}
	if s.middleware == nil {
		s.middleware = middleware.New(s.log)
	}

	detectionServices := detectionService.NewDetectionService(s.log, s.detector, s.categories, s.cache, s.utils, s.cfg.ConfidenceThreshold)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils, s.cfg.DetectTimeout)

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.handlers = append(s.handlers, detectionHandlers)
	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) Run() error {
	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if closeErr := s.detector.Close(); closeErr != nil {
		s.log.Warnf("Error closing detector: %v", closeErr)
	}
	if s.cache != nil {
		if closeErr := s.cache.Close(); closeErr != nil {
			s.log.Warnf("Error closing result cache: %v", closeErr)
		}
	}

	return err
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func NewValidator() *validator.Validate {
	return validator.New()
}
