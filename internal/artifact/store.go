package artifact

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Store persists pipeline artifacts (page rasters, previews, colorized
// output) under hierarchical keys of the form <session>/<stage>/<name>.
type Store interface {
	// Put stores data under key, overwriting any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns all keys beginning with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// DeletePrefix removes every object whose key begins with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// UploadTarget returns a URL a client can upload a source document to,
	// valid for ttl, plus the reference the service will read it back from.
	UploadTarget(ctx context.Context, key string, ttl time.Duration) (url, ref string, err error)
}

// EncodePNG serializes an image for storage.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG restores a stored page image.
func DecodePNG(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data))
}
