package evidence

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"satpam/internal/metrics"
)

var (
	ErrEmpty    = errors.New("evidence photo is empty")
	ErrTooLarge = errors.New("evidence photo exceeds size limit")
	ErrNotImage = errors.New("evidence must be an image")
	// ErrUpload wraps failures of the storage backend.
	ErrUpload = errors.New("evidence upload failed")
)

// Uploader stores bytes and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, filename string) (string, error)
}

// Service validates photos and hands them to a storage backend.
type Service struct {
	backend  Uploader
	name     string
	maxBytes int64
	log      *zap.Logger
}

// NewService wraps backend. name labels metrics and logs.
func NewService(backend Uploader, name string, maxBytes int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{backend: backend, name: name, maxBytes: maxBytes, log: log}
}

// Store checks that data is an image within the size limit, uploads it under
// a fresh name and returns the public URL.
func (s *Service) Store(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		metrics.EvidenceUploads.WithLabelValues(s.name, "rejected").Inc()
		return "", fmt.Errorf("%w: got %s", ErrNotImage, mt.String())
	}

	filename := uuid.NewString() + mt.Extension()
	url, err := s.backend.Upload(ctx, data, mt.String(), filename)
	if err != nil {
		metrics.EvidenceUploads.WithLabelValues(s.name, "error").Inc()
		s.log.Error("evidence upload failed", zap.String("backend", s.name), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	metrics.EvidenceUploads.WithLabelValues(s.name, "ok").Inc()
	s.log.Info("evidence uploaded",
		zap.String("backend", s.name),
		zap.String("content_type", mt.String()),
		zap.Int("bytes", len(data)))
	return url, nil
}

// DecodeDataURL accepts "data:image/jpeg;base64,..." or bare base64.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data url")
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}
