// Package images - Reads image dimensions without decoding pixel data.
package images

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Size is the pixel width and height of an image.
type Size struct {
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// String formats the size as WIDTHxHEIGHT.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Info is the header information of an image file.
type Info struct {
	Size
	// Format is the name reported by the decoder, e.g. "jpeg".
	Format ImageFormat `json:"format" yaml:"format"`
}

// ProbeSize reads the dimensions of the image at path.
//
// Only the image header is decoded, so this is cheap even for large images.
//
// Arguments:
//   - path: Path to a JPEG, PNG, GIF, BMP, TIFF, or WebP file.
//
// Returns:
//   - Info: The size and detected format.
//   - error: Non-nil if the file cannot be opened or its header is not recognized.
func ProbeSize(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, errors.Wrap(err, "open image")
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, errors.Wrapf(err, "decode image header %s", path)
	}

	return Info{
		Size:   Size{Width: cfg.Width, Height: cfg.Height},
		Format: ImageFormat(format),
	}, nil
}
