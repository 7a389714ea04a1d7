// Package piierrors defines the sentinel errors shared across the
// classification pipeline. Callers branch on these with errors.Is.
package piierrors

import "errors"

var (
	ErrInvalidThreshold   = errors.New("confidence threshold must be between 0.0 and 1.0")
	ErrInvalidIdentifier  = errors.New("invalid table or column identifier")
	ErrUnknownStage       = errors.New("unknown pipeline stage")
	ErrNoSamples          = errors.New("no samples available")
	ErrServiceUnavailable = errors.New("ner service unavailable")
)
