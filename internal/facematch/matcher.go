// Package facematch enrolls face samples and recognizes probe images against
// them using local binary pattern histograms.
package facematch

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Options tunes a Matcher. Zero values fall back to the package defaults.
type Options struct {
	Threshold       float64 // distances at or above are rejected
	FaceSize        int     // sample edge in pixels
	IndexMinSamples int     // use the candidate index from this many samples
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = constants.DefaultMatchThreshold
	}
	if o.FaceSize <= 0 {
		o.FaceSize = constants.FaceSize
	}
	if o.IndexMinSamples <= 0 {
		o.IndexMinSamples = constants.DefaultIndexMinSamples
	}
	return o
}

// Match is the result of a recognition attempt.
type Match struct {
	OwnerID  string
	Label    int
	Distance float64
	OK       bool
	NoFace   bool // the probe had no detectable face
}

// Status summarizes the matcher state.
type Status struct {
	Trained bool
	Owners  int
	Samples int
}

// Matcher owns the face store and the fitted model. Enrollment, training and
// removal take the write lock; recognition takes the read lock, so readers
// never observe a model mid-fit.
type Matcher struct {
	detector Detector
	opts     Options

	mu      sync.RWMutex
	store   *Store
	trained bool
	descs   []Histogram // descriptors of the fitted samples
	labels  []int       // labels of the fitted samples
	index   *candidateIndex
}

// NewMatcher creates an untrained matcher using detector to locate faces.
func NewMatcher(detector Detector, opts Options) *Matcher {
	return &Matcher{
		detector: detector,
		opts:     opts.withDefaults(),
		store:    NewStore(),
	}
}

// Detect returns the face regions found in img with overlapping
// detections of the same face collapsed.
func (m *Matcher) Detect(img image.Image) []image.Rectangle {
	return SuppressOverlaps(m.detector.Detect(img), overlapThreshold)
}

// Prepare detects the first face in img and extracts its sample without
// touching the store.
func (m *Matcher) Prepare(img image.Image) (Sample, error) {
	regions := m.detector.Detect(img)
	if len(regions) == 0 {
		return Sample{}, ErrNoFace
	}
	return Extract(img, regions[0], m.opts.FaceSize)
}

// EnrollSample adds a prepared sample for owner and re-fits the model.
func (m *Matcher) EnrollSample(owner string, s Sample) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %dx%d with %d pixels", ErrCorruptSample, s.Width, s.Height, len(s.Pix))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Enroll(owner, s)
	return m.train()
}

// EnrollAndTrain detects a face in img, enrolls it for owner and re-fits the
// model over all samples.
func (m *Matcher) EnrollAndTrain(img image.Image, owner string) (Sample, error) {
	s, err := m.Prepare(img)
	if err != nil {
		return Sample{}, err
	}
	if err := m.EnrollSample(owner, s); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// Load enrolls a persisted sample blob without re-fitting. Call Train once all
// samples are loaded.
func (m *Matcher) Load(owner string, blob []byte) error {
	s, err := Deserialize(blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Enroll(owner, s)
	return nil
}

// Train fits the model over every enrolled sample.
func (m *Matcher) Train() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.train()
}

func (m *Matcher) train() error {
	samples, labels := m.store.Samples()
	if len(samples) == 0 {
		m.trained = false
		m.descs, m.labels, m.index = nil, nil, nil
		return ErrEmptyStore
	}

	descs := make([]Histogram, len(samples))
	for i, s := range samples {
		descs[i] = Describe(s)
	}

	m.descs = descs
	m.labels = append([]int(nil), labels...)
	m.index = nil
	if len(descs) >= m.opts.IndexMinSamples {
		m.index = buildIndex(descs)
	}
	m.trained = true
	return nil
}

// Remove drops every sample of owner and re-fits the model.
// It returns the number of samples removed.
func (m *Matcher) Remove(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.store.Remove(owner)
	if removed > 0 {
		// An empty store leaves the matcher untrained.
		_ = m.train()
	}
	return removed
}

// Recognize identifies the first face in img. A probe without a face, an
// untrained matcher or a distance at or above the threshold yields no match;
// the first case also sets NoFace.
func (m *Matcher) Recognize(img image.Image) Match {
	s, err := m.Prepare(img)
	if err != nil {
		return Match{Label: -1, Distance: math.Inf(1), NoFace: errors.Is(err, ErrNoFace)}
	}
	return m.RecognizeSample(s)
}

// RecognizeSample identifies an already extracted sample.
func (m *Matcher) RecognizeSample(s Sample) Match {
	noMatch := Match{Label: -1, Distance: math.Inf(1)}
	if !s.Valid() {
		return noMatch
	}
	probe := Describe(s)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return noMatch
	}

	best, bestDist := -1, math.Inf(1)
	consider := func(i int) {
		if d := ChiSquare(probe, m.descs[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	if candidates := m.index.Search(probe, constants.IndexCandidates); len(candidates) > 0 {
		for _, i := range candidates {
			consider(i)
		}
	} else {
		for i := range m.descs {
			consider(i)
		}
	}

	if best < 0 {
		return noMatch
	}
	label := m.labels[best]
	owner, ok := m.store.Owner(label)
	if !ok || bestDist >= m.opts.Threshold {
		return Match{Label: -1, Distance: bestDist}
	}
	return Match{OwnerID: owner, Label: label, Distance: bestDist, OK: true}
}

// Status reports whether the model is trained and how much is enrolled.
func (m *Matcher) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{Trained: m.trained, Owners: m.store.Owners(), Samples: m.store.Len()}
}

// SampleCount returns the number of samples enrolled for owner.
func (m *Matcher) SampleCount(owner string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.SampleCount(owner)
}
