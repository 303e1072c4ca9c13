//go:build !cgo
// +build !cgo

package imagery

import "errors"

// Classifier is unavailable without CGO and the onnxruntime library.
type Classifier struct{}

// NewClassifier always fails in this build.
func NewClassifier(modelPath string) (*Classifier, error) {
	return nil, errors.New("land-cover classifier requires a CGO build with onnxruntime")
}

// Classify always fails in this build.
func (c *Classifier) Classify(imageBytes []byte) (Prediction, error) {
	return Prediction{}, errors.New("land-cover classifier requires a CGO build with onnxruntime")
}

// Close is a no-op.
func (c *Classifier) Close() error { return nil }
