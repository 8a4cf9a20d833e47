package supabase

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Storage uploads objects to a public Supabase Storage bucket.
type Storage struct {
	http    *resty.Client
	baseURL string
	bucket  string
	prefix  string
	logger  *zap.Logger
}

// NewStorage creates a storage client. prefix is prepended to object paths.
func NewStorage(baseURL, serviceKey, bucket, prefix string, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey)

	return &Storage{http: client, baseURL: baseURL, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}
}

type errorBody struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Upload stores data under filename and returns its public URL.
func (s *Storage) Upload(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	object := path.Join(s.prefix, filename)

	var apiErr errorBody
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data).
		SetError(&apiErr).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, object))
	if err != nil {
		return "", fmt.Errorf("supabase: upload request failed: %w", err)
	}
	if resp.IsError() {
		s.logger.Error("supabase upload rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", apiErr.Error),
			zap.String("message", apiErr.Message))
		return "", fmt.Errorf("supabase: upload failed (%d): %s", resp.StatusCode(), apiErr.Message)
	}
	return s.PublicURL(object), nil
}

// PublicURL is the anonymous download URL of an object in the bucket.
func (s *Storage) PublicURL(object string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, object)
}
