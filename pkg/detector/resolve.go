package detector

import (
	"errors"
	"fmt"

	"golang.org/x/net/context"
)

// ArtifactFetcher downloads a model artifact to dest.
type ArtifactFetcher interface {
	DownloadFile(ctx context.Context, key string, dest string) (int64, error)
}

type ResolveOptions struct {
	Candidates   []string
	Fetcher      ArtifactFetcher
	RemoteKey    string
	DownloadPath string
}

// ResolveModel returns the first existing candidate. When none exists and a
// fetcher is configured, the artifact is downloaded once to DownloadPath.
func ResolveModel(ctx context.Context, opts ResolveOptions) (string, error) {
	path, err := FindModel(opts.Candidates)
	if err == nil {
		return path, nil
	}
	if opts.Fetcher == nil || opts.RemoteKey == "" {
		return "", err
	}
	if opts.DownloadPath == "" {
		return "", errors.Join(err, fmt.Errorf("no download path for remote model %s", opts.RemoteKey))
	}

	if _, fetchErr := opts.Fetcher.DownloadFile(ctx, opts.RemoteKey, opts.DownloadPath); fetchErr != nil {
		return "", errors.Join(err, fetchErr)
	}
	return opts.DownloadPath, nil
}
