package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyImage    = errors.New("image payload is empty")
	ErrNotAnImage    = errors.New("payload is not an image")
	ErrImageTooLarge = errors.New("image size exceeds limit")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, error)
	DecodeBase64Image(payload string) ([]byte, error)
	ValidateImageBytes(data []byte) (string, error)
	HashImage(data []byte) string
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return NewWithLimit(50 * 1024 * 1024)
}

func NewWithLimit(maxFileSize int64) IUtils {
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrEmptyImage
	}

	if file.Size > u.maxFileSize {
		return ErrImageTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, ErrImageTooLarge
	}

	return data, nil
}

// StripDataURL drops everything up to and including the first comma, so both
// "data:image/png;base64,AAAA" and bare base64 are accepted.
func StripDataURL(payload string) string {
	if i := strings.Index(payload, ","); i != -1 {
		return payload[i+1:]
	}
	return payload
}

func (u *utils) DecodeBase64Image(payload string) ([]byte, error) {
	encoded := strings.TrimSpace(StripDataURL(payload))
	if encoded == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// unpadded input from some browser encoders
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
	}

	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, ErrImageTooLarge
	}

	return data, nil
}

// ValidateImageBytes sniffs the payload and returns its MIME type.
func (u *utils) ValidateImageBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return mtype.String(), fmt.Errorf("%w: detected %s", ErrNotAnImage, mtype.String())
	}

	return mtype.String(), nil
}

func (u *utils) HashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
