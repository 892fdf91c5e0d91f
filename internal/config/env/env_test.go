package env

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "MODEL_BACKEND", "DETECTION_CONFIDENCE_THRESHOLD", "BODY_LIMIT_MB",
		"DETECT_TIMEOUT_SECONDS", "REDIS_ADDRESS", "MODEL_S3_BUCKET", "MODEL_S3_KEY", "CACHE_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "5000" {
		t.Errorf("Expected port 5000, got %s", cfg.Port)
	}
	if cfg.ModelBackend != BackendLocal {
		t.Errorf("Expected local backend, got %s", cfg.ModelBackend)
	}
	if cfg.ConfidenceThreshold != 0.3 {
		t.Errorf("Expected threshold 0.3, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.BodyLimitMB != 50 || cfg.DetectTimeout != 30*time.Second || cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Unexpected limits: %+v", cfg)
	}
	if cfg.S3Enabled() || cfg.CacheEnabled() {
		t.Error("S3 and cache should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("MODEL_BACKEND", "Remote")
	t.Setenv("INFERENCE_WS_URL", "ws://inference:9000/ws")
	t.Setenv("DETECTION_CONFIDENCE_THRESHOLD", "0.45")
	t.Setenv("DETECT_TIMEOUT_SECONDS", "5")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("MODEL_S3_BUCKET", "trashiq-models")
	t.Setenv("MODEL_S3_KEY", "yolov8/best.onnx")

	cfg := Load()

	if cfg.Port != "8080" || cfg.ModelBackend != BackendRemote || cfg.InferenceWSURL != "ws://inference:9000/ws" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.ConfidenceThreshold != 0.45 {
		t.Errorf("Expected threshold 0.45, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.DetectTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.DetectTimeout)
	}
	if !cfg.S3Enabled() || !cfg.CacheEnabled() {
		t.Error("S3 and cache should be enabled")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DETECTION_CONFIDENCE_THRESHOLD", "1.5"},
		{"DETECTION_CONFIDENCE_THRESHOLD", "0"},
		{"DETECTION_CONFIDENCE_THRESHOLD", "high"},
		{"BODY_LIMIT_MB", "-4"},
		{"BODY_LIMIT_MB", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Load()
			if cfg.ConfidenceThreshold != 0.3 || cfg.BodyLimitMB != 50 {
				t.Errorf("Expected defaults, got threshold %v body limit %d", cfg.ConfidenceThreshold, cfg.BodyLimitMB)
			}
		})
	}
}
