package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	BodyLimitMB   int
	DetectTimeout time.Duration

	ModelBackend      string
	ModelPath         string
	ModelClassesPath  string
	ModelDownloadPath string
	ModelS3Bucket     string
	ModelS3Key        string
	InferenceWSURL    string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	ConfidenceThreshold float64
	CategoryTablePath   string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("APP_PORT", "5000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BodyLimitMB:   getEnvAsInt("BODY_LIMIT_MB", 50),
		DetectTimeout: time.Duration(getEnvAsInt("DETECT_TIMEOUT_SECONDS", 30)) * time.Second,

		ModelBackend:      strings.ToLower(getEnv("MODEL_BACKEND", BackendLocal)),
		ModelPath:         getEnv("MODEL_PATH", ""),
		ModelClassesPath:  getEnv("MODEL_CLASSES_PATH", ""),
		ModelDownloadPath: getEnv("MODEL_DOWNLOAD_PATH", "models/best.onnx"),
		ModelS3Bucket:     getEnv("MODEL_S3_BUCKET", ""),
		ModelS3Key:        getEnv("MODEL_S3_KEY", ""),
		InferenceWSURL:    getEnv("INFERENCE_WS_URL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		ConfidenceThreshold: getEnvAsFloat("DETECTION_CONFIDENCE_THRESHOLD", 0.3),
		CategoryTablePath:   getEnv("CATEGORY_TABLE_PATH", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

func (c *Config) S3Enabled() bool {
	return c.ModelS3Bucket != "" && c.ModelS3Key != ""
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddress != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue >= 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 && f < 1 {
			return f
		}
	}
	return defaultValue
}
