package config

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
	"trashiq/internal/config/env"
	"trashiq/internal/entity"
	"trashiq/pkg/detector"
	"trashiq/pkg/detector/yolo"
	"trashiq/pkg/s3"
	websocketPkg "trashiq/pkg/websocket"
)

// LoadDetector builds the model adapter once. It never fails: any loading
// error yields detector.Unavailable for the rest of the process lifetime.
func LoadDetector(cfg *env.Config, log *logrus.Logger, categories *entity.CategoryTable) detector.Detector {
	det, err := loadDetector(cfg, log, categories)
	if err != nil {
		log.WithFields(logrus.Fields{
			"backend": cfg.ModelBackend,
			"error":   err.Error(),
		}).Error("Model not loaded, detection requests will be rejected")
		return detector.NewUnavailable(err)
	}
	return det
}

func loadDetector(cfg *env.Config, log *logrus.Logger, categories *entity.CategoryTable) (detector.Detector, error) {
	switch cfg.ModelBackend {
	case env.BackendRemote:
		return websocketPkg.NewInferenceClient(cfg.InferenceWSURL, log)
	case env.BackendLocal, "":
		return loadLocalDetector(cfg, log, categories)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}
}

func loadLocalDetector(cfg *env.Config, log *logrus.Logger, categories *entity.CategoryTable) (detector.Detector, error) {
	opts := detector.ResolveOptions{
		Candidates:   detector.CandidatePaths(cfg.ModelPath),
		RemoteKey:    cfg.ModelS3Key,
		DownloadPath: cfg.ModelDownloadPath,
	}

	if cfg.S3Enabled() {
		client, err := s3.New(s3.Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.ModelS3Bucket,
		})
		if err != nil {
			log.Warnf("S3 model download disabled: %v", err)
		} else {
			opts.Fetcher = client
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	modelPath, err := detector.ResolveModel(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Infof("Loading model from: %s", modelPath)

	return yolo.New(yolo.Config{
		ModelPath:       modelPath,
		ClassesPath:     cfg.ModelClassesPath,
		FallbackClasses: categories.Labels(),
	}, log)
}
