// Package thumbnail produces preview images for uploaded videos.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/storage"
)

// Generator creates a thumbnail for the video stored at videoKey and
// returns the thumbnail's storage key.
type Generator interface {
	Generate(ctx context.Context, videoKey string) (string, error)
}

// Placeholder writes an empty image next to the video instead of decoding
// frames. "videos/abc.mp4" becomes "videos/abc_thumb.jpg".
type Placeholder struct {
	store storage.Storage
}

// NewPlaceholder creates a Placeholder generator writing to store.
func NewPlaceholder(store storage.Storage) *Placeholder {
	return &Placeholder{store: store}
}

func (p *Placeholder) Generate(ctx context.Context, videoKey string) (string, error) {
	key := KeyFor(videoKey)
	if _, err := p.store.Put(ctx, key, bytes.NewReader(nil)); err != nil {
		return "", fmt.Errorf("write placeholder thumbnail: %w", err)
	}
	return key, nil
}

// KeyFor derives the thumbnail key for a video key.
func KeyFor(videoKey string) string {
	return strings.TrimSuffix(videoKey, path.Ext(videoKey)) + "_thumb.jpg"
}
