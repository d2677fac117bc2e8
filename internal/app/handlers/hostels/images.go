package hostels

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"hostelfinder/internal/app/policies"
	domainhostels "hostelfinder/internal/domain/hostels"
)

var ErrImageStoreUnavailable = errors.New("hostels: image store unavailable")

// Image is an uploaded file already checked for size and type.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

func uploadImages(ctx context.Context, store policies.ImageStore, id domainhostels.HostelID, images []Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if store == nil {
		return nil, ErrImageStoreUnavailable
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		key := ObjectKey(id, img.Filename, img.ContentType)
		url, err := store.Upload(ctx, key, bytes.NewReader(img.Data), img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image %q: %w", img.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// ObjectKey places an image under hostels/<id>/ with a random name.
func ObjectKey(id domainhostels.HostelID, filename, contentType string) string {
	ext := extensionForContentType(contentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("hostels/%s/%s%s", sanitizePathToken(string(id)), uuid.NewString(), ext)
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

func sanitizePathToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	result := strings.Trim(b.String(), "-")
	if result == "" {
		return "hostel"
	}
	return result
}
