package facematch

import (
	"image"

	"golang.org/x/image/draw"
)

// Downscale resizes img to fit within maxSide while keeping the aspect ratio.
// Images that already fit are returned unchanged.
func Downscale(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSide <= 0 || (width <= maxSide && height <= maxSide) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSide
		newHeight = max(1, int(float64(height)*float64(maxSide)/float64(width)))
	} else {
		newHeight = maxSide
		newWidth = max(1, int(float64(width)*float64(maxSide)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
