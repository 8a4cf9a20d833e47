package faceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoFace is returned when the service finds no face in the image.
var ErrNoFace = errors.New("no face detected in image")

// FaceQuality contains face quality metrics.
type FaceQuality struct {
	Score     float64 `json:"score"`
	Blur      float64 `json:"blur"`
	IsFrontal bool    `json:"is_frontal"`
}

// Detection is what the service saw in a selfie.
type Detection struct {
	FacesDetected int
	Score         float64
	Quality       *FaceQuality
}

type embedResponse struct {
	Embedding     []float32    `json:"embedding"`
	Score         float64      `json:"score"`
	FacesDetected int          `json:"faces_detected"`
	Quality       *FaceQuality `json:"quality"`
}

// Client calls the face detection microservice.
type Client struct {
	http *resty.Client
	skip bool
}

// New creates a client. With skip set every image passes without a network call.
func New(baseURL string, skip bool) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30 * time.Second),
		skip: skip,
	}
}

// Detect asks the service to locate faces in the image at imageURL.
func (c *Client) Detect(ctx context.Context, imageURL string) (Detection, error) {
	if c.skip {
		return Detection{FacesDetected: 1, Score: 1}, nil
	}
	if imageURL == "" {
		return Detection{}, fmt.Errorf("image url required")
	}

	var out embedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"image_url": imageURL}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/embed")
	if err != nil {
		return Detection{}, fmt.Errorf("face service request failed: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return Detection{}, ErrNoFace
	case resp.IsError():
		return Detection{}, fmt.Errorf("face service error %s: %s", resp.Status(), truncate(resp.String(), 512))
	}

	if out.FacesDetected == 0 && len(out.Embedding) == 0 {
		return Detection{}, ErrNoFace
	}
	if out.FacesDetected == 0 {
		out.FacesDetected = 1
	}
	return Detection{FacesDetected: out.FacesDetected, Score: out.Score, Quality: out.Quality}, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.skip {
		return nil
	}
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("face service unhealthy: %s", resp.Status())
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
