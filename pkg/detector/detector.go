package detector

import (
	"errors"
	"golang.org/x/net/context"
	"trashiq/internal/entity"
)

var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrInvalidImage   = errors.New("invalid image")
	ErrModelNotFound  = errors.New("model artifact not found")
)

// Detector is a loaded object-detection model. Implementations decode the
// encoded image themselves.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]entity.RawDetection, error)
	Classes() []string
	Ready() bool
	Close() error
}

// Unavailable is the adapter used for the rest of the process lifetime once
// loading failed. It never retries.
type Unavailable struct {
	Reason error
}

func NewUnavailable(reason error) *Unavailable {
	return &Unavailable{Reason: reason}
}

func (u *Unavailable) Detect(ctx context.Context, image []byte) ([]entity.RawDetection, error) {
	return nil, ErrModelNotLoaded
}

func (u *Unavailable) Classes() []string {
	return []string{}
}

func (u *Unavailable) Ready() bool {
	return false
}

func (u *Unavailable) Close() error {
	return nil
}
