package facematch

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sample is a fixed-size grayscale face grid stored row-major.
type Sample struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewSample allocates a zeroed sample of the given size.
func NewSample(width, height int) Sample {
	return Sample{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the intensity at (x, y).
func (s Sample) At(x, y int) uint8 {
	return s.Pix[y*s.Width+x]
}

// Valid reports whether the pixel buffer matches the declared dimensions.
func (s Sample) Valid() bool {
	return s.Width > 0 && s.Height > 0 && len(s.Pix) == s.Width*s.Height
}

// sampleBlob is the persisted form: shape is [rows, cols] and face the flattened pixels.
type sampleBlob struct {
	Shape []int `json:"shape,omitempty"`
	Face  []int `json:"face"`
}

// Serialize encodes a sample into its persisted blob form.
func Serialize(s Sample) ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %dx%d with %d pixels", ErrCorruptSample, s.Width, s.Height, len(s.Pix))
	}
	face := make([]int, len(s.Pix))
	for i, v := range s.Pix {
		face[i] = int(v)
	}
	data, err := json.Marshal(sampleBlob{Shape: []int{s.Height, s.Width}, Face: face})
	if err != nil {
		return nil, fmt.Errorf("encoding sample: %w", err)
	}
	return data, nil
}

// Deserialize decodes a persisted blob. Blobs without a shape are assumed to
// hold a canonical FaceSize x FaceSize sample.
func Deserialize(blob []byte) (Sample, error) {
	var b sampleBlob
	if err := json.Unmarshal(blob, &b); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrCorruptSample, err)
	}

	height, width := constants.FaceSize, constants.FaceSize
	if len(b.Shape) > 0 {
		if len(b.Shape) != 2 {
			return Sample{}, fmt.Errorf("%w: shape has %d dimensions", ErrCorruptSample, len(b.Shape))
		}
		height, width = b.Shape[0], b.Shape[1]
	}
	if height <= 0 || width <= 0 {
		return Sample{}, fmt.Errorf("%w: invalid shape %dx%d", ErrCorruptSample, height, width)
	}
	if len(b.Face) != width*height {
		return Sample{}, fmt.Errorf("%w: expected %d pixels, got %d", ErrCorruptSample, width*height, len(b.Face))
	}

	s := NewSample(width, height)
	for i, v := range b.Face {
		if v < 0 || v > 255 {
			return Sample{}, fmt.Errorf("%w: pixel %d out of range (%d)", ErrCorruptSample, i, v)
		}
		s.Pix[i] = uint8(v)
	}
	return s, nil
}
