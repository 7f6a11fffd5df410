package facematch

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes jpeg, png, gif, bmp or webp bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Extract crops region out of img, converts it to grayscale and resizes it
// to a size x size sample. The region is clamped to the image bounds.
func Extract(img image.Image, region image.Rectangle, size int) (Sample, error) {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return Sample{}, fmt.Errorf("%w: face region outside image", ErrNoFace)
	}

	face := imaging.Crop(img, region)
	gray := imaging.Grayscale(face)
	if gray.Bounds().Dx() != size || gray.Bounds().Dy() != size {
		gray = imaging.Resize(gray, size, size, imaging.Linear)
	}

	out := image.NewGray(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), gray, gray.Bounds().Min, draw.Src)

	return Sample{Width: size, Height: size, Pix: out.Pix}, nil
}
