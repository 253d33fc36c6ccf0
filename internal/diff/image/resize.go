package image

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/xerrors"
)

// ResizePolicy decides what happens when the candidate and the reference
// differ in size. The reference dimensions always win.
type ResizePolicy string

const (
	// ResizeCandidate resamples the candidate to the reference size. It does
	// not compensate for shifted content, so genuinely different sizes can
	// mask or manufacture differences near the edges.
	ResizeCandidate ResizePolicy = "resize"
	// Strict rejects mismatched sizes with a DimensionMismatchError.
	Strict ResizePolicy = "strict"
)

func ParseResizePolicy(s string) (ResizePolicy, error) {
	switch ResizePolicy(s) {
	case ResizeCandidate, Strict:
		return ResizePolicy(s), nil
	default:
		return "", xerrors.Errorf("unknown resize policy: %s", s)
	}
}

func resizeTo(candidate image.Image, width int, height int, interpolation resize.InterpolationFunction) (resized image.Image, err error) {
	from := candidate.Bounds().Size()
	to := image.Pt(width, height)

	if from.X <= 0 || from.Y <= 0 {
		return nil, &ResizeError{From: from, To: to, Err: xerrors.New("candidate has no pixels")}
	}

	defer func() {
		if r := recover(); r != nil {
			resized = nil
			err = &ResizeError{From: from, To: to, Err: fmt.Errorf("%v", r)}
		}
	}()

	resized = resize.Resize(uint(width), uint(height), candidate, interpolation)
	if got := resized.Bounds().Size(); got != to {
		return nil, &ResizeError{From: from, To: to, Err: xerrors.Errorf("resampler produced %dx%d", got.X, got.Y)}
	}
	return resized, nil
}
