package detector

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/net/context"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestCandidatePaths(t *testing.T) {
	paths := CandidatePaths("/opt/model.onnx")
	if len(paths) != 5 || paths[0] != "/opt/model.onnx" {
		t.Errorf("Expected explicit path first, got %v", paths)
	}

	paths = CandidatePaths("")
	if len(paths) != 4 {
		t.Fatalf("Expected 4 default paths, got %v", paths)
	}
	if paths[0] != filepath.Join("..", "ai", "models", "best.onnx") || paths[2] != "best.onnx" {
		t.Errorf("Unexpected search order: %v", paths)
	}
}

func TestFindModel(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.onnx")
	present := filepath.Join(dir, "models", "best.onnx")
	writeFile(t, present, "onnx")

	path, err := FindModel([]string{missing, dir, present})
	if err != nil {
		t.Fatalf("FindModel failed: %v", err)
	}
	if path != present {
		t.Errorf("Expected %s, got %s", present, path)
	}

	_, err = FindModel([]string{missing})
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("Expected ErrModelNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("Error should list searched paths, got %v", err)
	}
}

func TestLoadClasses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.txt")
	writeFile(t, path, "# trash labels\ncan\n\n  plastic bottle  \nsolid mug\n")

	classes, err := LoadClasses(path)
	if err != nil {
		t.Fatalf("LoadClasses failed: %v", err)
	}

	expected := []string{"can", "plastic bottle", "solid mug"}
	if len(classes) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, classes)
	}
	for i := range expected {
		if classes[i] != expected[i] {
			t.Errorf("classes[%d] = %q, expected %q", i, classes[i], expected[i])
		}
	}

	empty := filepath.Join(dir, "empty.txt")
	writeFile(t, empty, "# nothing\n\n")
	if _, err := LoadClasses(empty); err == nil {
		t.Error("Expected error for a file without labels")
	}

	if _, err := LoadClasses(filepath.Join(dir, "nope.txt")); err == nil {
		t.Error("Expected error for a missing file")
	}

	decomposed := filepath.Join(dir, "decomposed.txt")
	writeFile(t, decomposed, "\ufeffcan\ncafe\u0301 cup\n")
	classes, err = LoadClasses(decomposed)
	if err != nil {
		t.Fatalf("LoadClasses failed: %v", err)
	}
	if classes[0] != "can" || classes[1] != "caf\u00e9 cup" {
		t.Errorf("Expected BOM stripped and NFC labels, got %q", classes)
	}

	if ClassesPathFor(filepath.Join(dir, "best.onnx")) != path {
		t.Errorf("ClassesPathFor should point next to the model")
	}
}

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) DownloadFile(ctx context.Context, key string, dest string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if err := os.WriteFile(dest, []byte("onnx"), 0o644); err != nil {
		return 0, err
	}
	return 4, nil
}

func TestResolveModel(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "best.onnx")
	dest := filepath.Join(dir, "downloaded.onnx")

	fetcher := &fakeFetcher{}
	path, err := ResolveModel(context.Background(), ResolveOptions{
		Candidates:   []string{local},
		Fetcher:      fetcher,
		RemoteKey:    "models/best.onnx",
		DownloadPath: dest,
	})
	if err != nil {
		t.Fatalf("ResolveModel failed: %v", err)
	}
	if path != dest || fetcher.calls != 1 {
		t.Errorf("Expected download to %s, got %s after %d calls", dest, path, fetcher.calls)
	}

	writeFile(t, local, "onnx")
	path, err = ResolveModel(context.Background(), ResolveOptions{
		Candidates: []string{local},
		Fetcher:    fetcher,
		RemoteKey:  "models/best.onnx",
	})
	if err != nil || path != local {
		t.Errorf("Expected local model %s, got %s (%v)", local, path, err)
	}
	if fetcher.calls != 1 {
		t.Errorf("Fetcher should not run when a local model exists")
	}
}

func TestResolveModel_Failures(t *testing.T) {
	missing := []string{filepath.Join(t.TempDir(), "best.onnx")}

	_, err := ResolveModel(context.Background(), ResolveOptions{Candidates: missing})
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Expected ErrModelNotFound without fetcher, got %v", err)
	}

	fetchErr := errors.New("access denied")
	_, err = ResolveModel(context.Background(), ResolveOptions{
		Candidates:   missing,
		Fetcher:      &fakeFetcher{err: fetchErr},
		RemoteKey:    "models/best.onnx",
		DownloadPath: filepath.Join(t.TempDir(), "best.onnx"),
	})
	if !errors.Is(err, ErrModelNotFound) || !errors.Is(err, fetchErr) {
		t.Errorf("Expected both not-found and fetch errors, got %v", err)
	}

	_, err = ResolveModel(context.Background(), ResolveOptions{
		Candidates: missing,
		Fetcher:    &fakeFetcher{},
		RemoteKey:  "models/best.onnx",
	})
	if err == nil {
		t.Error("Expected error without a download path")
	}
}

func TestUnavailable(t *testing.T) {
	u := NewUnavailable(ErrModelNotFound)

	if u.Ready() {
		t.Error("Unavailable detector must not be ready")
	}
	if classes := u.Classes(); classes == nil || len(classes) != 0 {
		t.Errorf("Expected empty classes, got %#v", classes)
	}
	if _, err := u.Detect(context.Background(), []byte("img")); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Expected ErrModelNotLoaded, got %v", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}
