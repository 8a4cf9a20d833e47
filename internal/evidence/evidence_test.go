package evidence

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk start; enough for sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeBackend struct {
	contentType string
	filename    string
	err         error
}

func (f *fakeBackend) Upload(_ context.Context, _ []byte, contentType, filename string) (string, error) {
	f.contentType, f.filename = contentType, filename
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/" + filename, nil
}

func TestStore_UploadsImages(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, "fake", 1<<20, nil)

	url, err := svc.Store(context.Background(), pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", backend.contentType)
	assert.True(t, strings.HasSuffix(backend.filename, ".png"))
	assert.Equal(t, "https://cdn.example/"+backend.filename, url)
}

func TestStore_Rejections(t *testing.T) {
	svc := NewService(&fakeBackend{}, "fake", 16, nil)

	_, err := svc.Store(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = svc.Store(context.Background(), pngBytes)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Store(context.Background(), []byte("just text"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestStore_BackendFailure(t *testing.T) {
	svc := NewService(&fakeBackend{err: errors.New("503")}, "fake", 0, nil)

	_, err := svc.Store(context.Background(), pngBytes)
	assert.ErrorIs(t, err, ErrUpload)
}

func TestDecodeDataURL(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngBytes)

	got, err := DecodeDataURL("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	got, err = DecodeDataURL(enc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	_, err = DecodeDataURL("data:image/png;base64")
	assert.Error(t, err)

	_, err = DecodeDataURL("%%%")
	assert.Error(t, err)
}
