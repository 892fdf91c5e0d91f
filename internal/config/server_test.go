package config

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"trashiq/internal/config/env"
	"trashiq/internal/entity"
	"trashiq/pkg/detector"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

type stubDetector struct{}

func (stubDetector) Detect(ctx context.Context, image []byte) ([]entity.RawDetection, error) {
	return nil, nil
}
func (stubDetector) Classes() []string { return []string{"can"} }
func (stubDetector) Ready() bool       { return true }
func (stubDetector) Close() error      { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	logger := testLogger()

	tests := []struct {
		name    string
		options []ServerOption
	}{
		{"no fiber", []ServerOption{WithLogger(logger), WithConfig(&env.Config{}), WithDetectorInstance(stubDetector{})}},
		{"no logger", []ServerOption{WithFiber(NewFiber(logger, 1)), WithConfig(&env.Config{}), WithDetectorInstance(stubDetector{})}},
		{"no config", []ServerOption{WithFiber(NewFiber(logger, 1)), WithLogger(logger), WithDetectorInstance(stubDetector{})}},
		{"no detector", []ServerOption{WithFiber(NewFiber(logger, 1)), WithLogger(logger), WithConfig(&env.Config{})}},
		{"category table before config", []ServerOption{WithCategoryTable()}},
	}

	for _, tt := range tests {
		if _, err := NewServer(tt.options...); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestServer_RegisterHandler(t *testing.T) {
	logger := testLogger()
	cfg := &env.Config{ConfidenceThreshold: 0.3}

	server, err := NewServer(
		WithFiber(NewFiber(logger, 1)),
		WithLogger(logger),
		WithConfig(cfg),
		WithCategoryTable(),
		WithDetectorInstance(stubDetector{}),
		WithResultCache(),
		WithMiddleware(),
		WithUtils(),
	)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	server.RegisterHandler()

	resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	resp, err = server.App().Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := jsoniter.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode 404 body: %v", err)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("Expected error envelope, got %v", body)
	}
}

func TestLoadDetector_FailuresDegrade(t *testing.T) {
	logger := testLogger()
	categories := entity.DefaultCategoryTable()

	tests := []struct {
		name string
		cfg  *env.Config
	}{
		{"remote without url", &env.Config{ModelBackend: env.BackendRemote}},
		{"unknown backend", &env.Config{ModelBackend: "tpu"}},
		{"missing local model", &env.Config{ModelBackend: env.BackendLocal, ModelPath: "/nonexistent/best.onnx"}},
	}

	for _, tt := range tests {
		det := LoadDetector(tt.cfg, logger, categories)
		if det.Ready() {
			t.Errorf("%s: expected an unavailable detector", tt.name)
		}
		if _, ok := det.(*detector.Unavailable); !ok {
			t.Errorf("%s: expected *detector.Unavailable, got %T", tt.name, det)
		}
	}
}

func TestLoadDetector_MissingModelMentionsSearchPaths(t *testing.T) {
	det := LoadDetector(&env.Config{ModelPath: "/nonexistent/best.onnx"}, testLogger(), entity.DefaultCategoryTable())

	u, ok := det.(*detector.Unavailable)
	if !ok {
		t.Fatalf("Expected *detector.Unavailable, got %T", det)
	}
	if !strings.Contains(u.Reason.Error(), "/nonexistent/best.onnx") {
		t.Errorf("Expected the searched path in the reason, got %v", u.Reason)
	}
}
