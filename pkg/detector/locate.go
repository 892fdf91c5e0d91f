package detector

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultModelFile   = "best.onnx"
	DefaultClassesFile = "classes.txt"
)

// CandidatePaths lists where the model artifact is searched, in order. An
// explicit path is tried first.
func CandidatePaths(explicit string) []string {
	paths := make([]string, 0, 5)
	if explicit != "" {
		paths = append(paths, explicit)
	}
	return append(paths,
		filepath.Join("..", "ai", "models", DefaultModelFile),
		filepath.Join("ai", "models", DefaultModelFile),
		DefaultModelFile,
		filepath.Join("models", DefaultModelFile),
	)
}

// FindModel returns the first candidate that exists as a regular file.
func FindModel(candidates []string) (string, error) {
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: searched %s", ErrModelNotFound, strings.Join(absAll(candidates), ", "))
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
			continue
		}
		out = append(out, p)
	}
	return out
}

// ClassesPathFor returns the label file expected next to modelPath.
func ClassesPathFor(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), DefaultClassesFile)
}

// LoadClasses reads one label per line. Blank lines and lines starting with
// '#' are skipped. Labels are NFC-normalized so they compare equal to the
// category table keys.
func LoadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff")))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		classes = append(classes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no class labels in %s", path)
	}

	return classes, nil
}
