package policies

import (
	"context"
	"io"
)

// ImageStore keeps uploaded hostel images and returns a URL clients can fetch.
type ImageStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}
