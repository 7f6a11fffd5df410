//go:build opencv

package facematch

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	haarScaleFactor  = 1.1
	haarMinNeighbors = 5
)

// CascadeDetector detects faces with an OpenCV Haar cascade.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	minSize    int
}

// NewCascadeDetector loads a Haar cascade XML file such as
// haarcascade_frontalface_default.xml.
func NewCascadeDetector(cascadePath string, minSize int) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", cascadePath)
	}
	return &CascadeDetector{classifier: classifier, minSize: minSize}, nil
}

func (d *CascadeDetector) Detect(img image.Image) []image.Rectangle {
	bounds := img.Bounds()
	if bounds.Dx() < d.minSize || bounds.Dy() < d.minSize {
		return nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	// CascadeClassifier is not safe for concurrent detection.
	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(
		gray, haarScaleFactor, haarMinNeighbors, 0,
		image.Pt(d.minSize, d.minSize), image.Pt(0, 0),
	)
	d.mu.Unlock()

	regions := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, r.Add(bounds.Min))
	}
	return regions
}

// Close releases the native classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
