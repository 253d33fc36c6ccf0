package image

import (
	"errors"
	"fmt"
	"image"
)

type DiffResult struct {
	// Diff is nil unless a diff image was requested and the reference is non-empty.
	Diff    *image.NRGBA
	DiffPNG []byte

	ChangedPixelCount int64
	ChangedPercent    float64

	Width  int
	Height int
	// Empty reports a reference with no pixels. The metric is zero by definition.
	Empty bool
}

type Differ interface {
	Compare(reference []byte, candidate []byte, produceDiff bool) (*DiffResult, error)
	CompareImages(reference image.Image, candidate image.Image, produceDiff bool) (*DiffResult, error)
}

var ErrImageTooLarge = errors.New("image too large")

type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s image: %s", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ResizeError struct {
	From image.Point
	To   image.Point
	Err  error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("failed to resize candidate from %dx%d to %dx%d: %s", e.From.X, e.From.Y, e.To.X, e.To.Y, e.Err)
}

func (e *ResizeError) Unwrap() error {
	return e.Err
}

type DimensionMismatchError struct {
	Reference image.Point
	Candidate image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("candidate is %dx%d but reference is %dx%d", e.Candidate.X, e.Candidate.Y, e.Reference.X, e.Reference.Y)
}
