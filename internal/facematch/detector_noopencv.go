//go:build !opencv

package facematch

import "errors"

// NewCascadeDetector is only available in binaries built with the opencv tag.
func NewCascadeDetector(cascadePath string, minSize int) (Detector, error) {
	return nil, errors.New("opencv detector not compiled in, rebuild with -tags opencv")
}
