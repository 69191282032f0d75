package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrInvalidImage marks payloads that are not a decodable jpeg, png, gif or webp.
var ErrInvalidImage = errors.New("invalid image")

// Info describes a probed image.
type Info struct {
	Width       int
	Height      int
	Format      string // jpeg, png, gif, webp
	ContentType string
	Extension   string
}

// Probe reads the image header and returns its dimensions and format.
// Only the header is decoded.
func Probe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: empty dimensions", ErrInvalidImage)
	}

	info := Info{Width: cfg.Width, Height: cfg.Height, Format: format}
	switch format {
	case "jpeg":
		info.ContentType, info.Extension = "image/jpeg", ".jpg"
	case "png":
		info.ContentType, info.Extension = "image/png", ".png"
	case "gif":
		info.ContentType, info.Extension = "image/gif", ".gif"
	case "webp":
		info.ContentType, info.Extension = "image/webp", ".webp"
	default:
		return Info{}, fmt.Errorf("%w: unsupported format %s", ErrInvalidImage, format)
	}
	return info, nil
}

// SizeKB rounds a byte count up to whole kilobytes.
func SizeKB(n int) int {
	return (n + 1023) / 1024
}
