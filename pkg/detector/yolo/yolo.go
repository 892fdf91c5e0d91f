package yolo

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/net/context"

	"trashiq/internal/entity"
	"trashiq/pkg/detector"
)

type Config struct {
	ModelPath       string
	ClassesPath     string
	FallbackClasses []string
	InputSize       int
	PostProcess     detector.PostProcessConfig
}

// network is the part of gocv.Net the detector drives.
type network interface {
	SetInput(blob gocv.Mat, name string)
	Forward(outputName string) gocv.Mat
	Empty() bool
	Close() error
}

// Detector runs a YOLOv8 ONNX export through the OpenCV DNN module.
// gocv.Net is not safe for concurrent use, and the Mat returned by Forward
// shares the net's output blob, so each inference holds the lock until its
// output has been decoded.
type Detector struct {
	net     network
	classes []string
	cfg     Config
	mu      sync.Mutex
	log     *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) (*Detector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = detector.DefaultInputSize
	}
	if cfg.PostProcess == (detector.PostProcessConfig{}) {
		cfg.PostProcess = detector.DefaultPostProcessConfig()
	}

	d := &Detector{cfg: cfg, log: log}
	if err := d.loadClasses(); err != nil {
		return nil, err
	}
	if err := d.initializeNet(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Detector) loadClasses() error {
	path := d.cfg.ClassesPath
	if path == "" {
		path = detector.ClassesPathFor(d.cfg.ModelPath)
	}

	classes, err := detector.LoadClasses(path)
	if err == nil {
		d.classes = classes
		return nil
	}
	if len(d.cfg.FallbackClasses) == 0 {
		return fmt.Errorf("load class labels: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"path":  path,
		"error": err.Error(),
	}).Warn("Class label file unavailable, using category table order")
	d.classes = append([]string(nil), d.cfg.FallbackClasses...)
	return nil
}

func (d *Detector) initializeNet() error {
	if _, err := os.Stat(d.cfg.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", detector.ErrModelNotFound, d.cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(d.cfg.ModelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", d.cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = &net
	d.log.WithFields(logrus.Fields{
		"model":   d.cfg.ModelPath,
		"classes": d.classes,
	}).Info("Detection network initialized")
	return nil
}

func (d *Detector) Detect(ctx context.Context, data []byte) ([]entity.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrInvalidImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", detector.ErrInvalidImage)
	}

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	return d.forward(blob, mat.Cols(), mat.Rows())
}

func (d *Detector) forward(blob gocv.Mat, width, height int) ([]entity.RawDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output dims %v", dims)
	}

	values, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	return detector.DecodeYOLO(detector.YOLOOutput{
		Data:        values,
		Channels:    dims[1],
		Anchors:     dims[2],
		InputSize:   d.cfg.InputSize,
		ImageWidth:  width,
		ImageHeight: height,
	}, d.classes, d.cfg.PostProcess)
}

func (d *Detector) Classes() []string {
	return append([]string(nil), d.classes...)
}

func (d *Detector) Ready() bool {
	return d.net != nil && !d.net.Empty()
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net == nil {
		return nil
	}
	return d.net.Close()
}
