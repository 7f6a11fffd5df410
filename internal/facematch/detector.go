package facematch

import (
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Detector finds face regions in an image. Implementations never fail:
// an image without faces, or one too small to scan, yields no regions.
// Regions are ordered best first.
type Detector interface {
	Detect(img image.Image) []image.Rectangle
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(img image.Image) []image.Rectangle

func (f DetectorFunc) Detect(img image.Image) []image.Rectangle {
	return f(img)
}

// NewDetector builds the detector backend named in cfg.
func NewDetector(cfg config.RecognitionConfig) (Detector, error) {
	switch cfg.Detector {
	case "", "pigo":
		d, err := NewPigoDetector(cfg.CascadePath, cfg.MinFaceSize)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "opencv":
		return NewCascadeDetector(cfg.CascadePath, cfg.MinFaceSize)
	default:
		return nil, fmt.Errorf("unknown face detector %q", cfg.Detector)
	}
}

const (
	pigoScaleFactor  = 1.1
	pigoShiftFactor  = 0.1
	pigoIoUThreshold = 0.2
	pigoMinQuality   = 5.0
)

// PigoDetector detects faces with a pixel-intensity-comparison cascade.
type PigoDetector struct {
	classifier *pigo.Pigo
	minSize    int
}

// NewPigoDetector loads a pigo cascade from cascadePath.
func NewPigoDetector(cascadePath string, minSize int) (*PigoDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier, minSize: minSize}, nil
}

func (d *PigoDetector) Detect(img image.Image) []image.Rectangle {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols < d.minSize || rows < d.minSize {
		return nil
	}

	params := pigo.CascadeParams{
		MinSize:     d.minSize,
		MaxSize:     max(cols, rows),
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: pigoScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, pigoIoUThreshold)
	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Q > dets[j].Q })

	var regions []image.Rectangle
	for _, det := range dets {
		if det.Q < pigoMinQuality {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).
			Add(bounds.Min).
			Intersect(bounds)
		if !r.Empty() {
			regions = append(regions, r)
		}
	}
	return regions
}
