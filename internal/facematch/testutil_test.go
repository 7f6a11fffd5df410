package facematch

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// wholeImage is a detector that reports the full image as one face.
var wholeImage = DetectorFunc(func(img image.Image) []image.Rectangle {
	return []image.Rectangle{img.Bounds()}
})

// noFaces is a detector that never finds anything.
var noFaces = DetectorFunc(func(img image.Image) []image.Rectangle {
	return nil
})

func horizontalStripes(t *testing.T, size int) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func verticalStripes(t *testing.T, size int) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func noise(t *testing.T, size int, seed int64) *image.Gray {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func sampleOf(t *testing.T, img *image.Gray) Sample {
	t.Helper()
	b := img.Bounds()
	return Sample{Width: b.Dx(), Height: b.Dy(), Pix: append([]uint8(nil), img.Pix...)}
}
