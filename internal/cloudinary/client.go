package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.cloudinary.com"

// Client uploads evidence photos to Cloudinary using their REST API.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	http *resty.Client
	now  func() time.Time
}

// New creates a Cloudinary client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		http:      resty.New().SetBaseURL(defaultBaseURL).SetTimeout(30 * time.Second),
		now:       time.Now,
	}
}

// SetBaseURL points the client at another API host.
func (c *Client) SetBaseURL(u string) *Client {
	c.http.SetBaseURL(strings.TrimRight(u, "/"))
	return c
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends image bytes as a signed upload and returns the public https URL.
// The file name without extension becomes the public id inside Folder.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.APIKey,
		"public_id": strings.TrimSuffix(filename, path.Ext(filename)),
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)

	var (
		res    UploadResult
		apiErr errorBody
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(params).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetResult(&res).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v1_1/%s/image/upload", c.CloudName))
	if err != nil {
		return "", fmt.Errorf("cloudinary: request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode(), msg)
	}

	switch {
	case res.SecureURL != "":
		return res.SecureURL, nil
	case res.URL != "":
		return res.URL, nil
	}
	return "", fmt.Errorf("cloudinary: response carried no url")
}

// sign computes the Cloudinary API signature from the given params.
// api_key, file and resource_type are not signed.
func (c *Client) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "api_key", "file", "resource_type":
			continue
		}
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return fmt.Sprintf("%x", sha1.Sum([]byte(strings.Join(pairs, "&")+c.APISecret)))
}
