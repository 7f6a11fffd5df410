// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face recognition constants
const (
	// FaceSize is the canonical width and height (pixels) of an extracted face sample
	FaceSize = 100

	// DefaultMatchThreshold is the LBPH distance at or above which a match is rejected.
	// Lower distances are better fits.
	DefaultMatchThreshold = 100.0

	// DefaultMinFaceSize is the smallest face (pixels) a detector should report
	DefaultMinFaceSize = 30

	// DefaultIndexMinSamples is the enrolled sample count from which the HNSW
	// candidate index is used instead of an exhaustive scan
	DefaultIndexMinSamples = 512

	// IndexCandidates is the number of HNSW neighbours re-scored exactly
	IndexCandidates = 16

	// MaxImageSide is the longest edge uploads are scaled down to before detection
	MaxImageSide = 1600
)

// Attendance constants
const (
	// DefaultGracePeriod is the window after session start still counted as on time
	DefaultGracePeriod = 10 * time.Minute

	// DefaultSweepSchedule fires the absence sweep every evening at 22:00
	DefaultSweepSchedule = "0 22 * * *"

	// SweepTimeout bounds a single scheduled sweep run
	SweepTimeout = 4 * time.Minute
)

// HTTP constants
const (
	// MaxImageBodyBytes limits JSON bodies carrying base64 images
	MaxImageBodyBytes = 16 << 20

	// DefaultRecognizeRate is the sustained recognitions per second allowed per client
	DefaultRecognizeRate = 2.0

	// DefaultRecognizeBurst is the recognition burst allowed per client
	DefaultRecognizeBurst = 5
)
