package image

import (
	"image"
	"image/color"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nfnt/resize"
)

type Config struct {
	Policy        ResizePolicy
	Interpolation resize.InterpolationFunction

	// Highlight marks changed pixels in the diff image.
	Highlight color.NRGBA
	// BackdropAlpha replaces the alpha of unchanged pixels in the diff image.
	BackdropAlpha uint8

	// Workers is the number of row partitions scanned in parallel. Zero means GOMAXPROCS.
	Workers int
	// MaxPixels rejects inputs whose header declares more pixels. Zero disables the check.
	MaxPixels int64
}

func DefaultConfig() Config {
	return Config{
		Policy:        ResizeCandidate,
		Interpolation: resize.Bicubic,
		Highlight:     color.NRGBA{R: 255, G: 0, B: 0, A: 255},
		BackdropAlpha: 50,
		Workers:       0,
		MaxPixels:     100_000_000,
	}
}

type PixelDiff struct {
	config Config
}

func NewPixelDiff(config Config) *PixelDiff {
	if config.Policy == "" {
		config.Policy = ResizeCandidate
	}
	return &PixelDiff{
		config,
	}
}

func (p *PixelDiff) Compare(reference []byte, candidate []byte, produceDiff bool) (*DiffResult, error) {
	referenceImage, err := decode(reference, p.config.MaxPixels)
	if err != nil {
		return nil, &DecodeError{Input: "reference", Err: err}
	}

	candidateImage, err := decode(candidate, p.config.MaxPixels)
	if err != nil {
		return nil, &DecodeError{Input: "candidate", Err: err}
	}

	return p.CompareImages(referenceImage, candidateImage, produceDiff)
}

func (p *PixelDiff) CompareImages(reference image.Image, candidate image.Image, produceDiff bool) (*DiffResult, error) {
	size := reference.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return &DiffResult{
			Width:  max(size.X, 0),
			Height: max(size.Y, 0),
			Empty:  true,
		}, nil
	}

	if candidateSize := candidate.Bounds().Size(); candidateSize != size {
		if p.config.Policy == Strict {
			return nil, &DimensionMismatchError{Reference: size, Candidate: candidateSize}
		}

		resized, err := resizeTo(candidate, size.X, size.Y, p.config.Interpolation)
		if err != nil {
			return nil, err
		}
		candidate = resized
	}

	baseline := toNRGBA(reference)
	target := toNRGBA(candidate)

	var diff *image.NRGBA
	if produceDiff {
		diff = image.NewNRGBA(baseline.Rect)
	}

	numWorkers := p.config.Workers
	if numWorkers <= 0 {
		// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
		numWorkers = runtime.GOMAXPROCS(0)
	}
	numWorkers = min(numWorkers, size.Y)

	rowsPerWorker := size.Y / numWorkers

	var changedPixelCount int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = size.Y
		}

		go func(startY int, endY int) {
			defer wg.Done()
			p.process(baseline, target, diff, startY, endY, &changedPixelCount)
		}(startY, endY)
	}

	wg.Wait()

	totalPixelCount := int64(size.X) * int64(size.Y)
	result := &DiffResult{
		Diff:              diff,
		ChangedPixelCount: changedPixelCount,
		ChangedPercent:    changedPercent(changedPixelCount, totalPixelCount),
		Width:             size.X,
		Height:            size.Y,
	}

	if diff != nil {
		encoded, err := encodePNG(diff)
		if err != nil {
			return nil, err
		}
		result.DiffPNG = encoded
	}

	return result, nil
}

// process scans rows [startY, endY). diff may be nil.
func (p *PixelDiff) process(baseline *image.NRGBA, target *image.NRGBA, diff *image.NRGBA, startY int, endY int, changedCount *int64) {
	var localChanged int64
	width := baseline.Rect.Dx()
	highlight := p.config.Highlight

	for y := startY; y < endY; y++ {
		baselineRowStart := baseline.PixOffset(0, y)
		targetRowStart := target.PixOffset(0, y)
		diffRowStart := 0
		if diff != nil {
			diffRowStart = diff.PixOffset(0, y)
		}

		for x := 0; x < width; x++ {
			baselineOffset := baselineRowStart + x*4
			targetOffset := targetRowStart + x*4

			br := baseline.Pix[baselineOffset]
			bg := baseline.Pix[baselineOffset+1]
			bb := baseline.Pix[baselineOffset+2]
			ba := baseline.Pix[baselineOffset+3]

			tr := target.Pix[targetOffset]
			tg := target.Pix[targetOffset+1]
			tb := target.Pix[targetOffset+2]
			ta := target.Pix[targetOffset+3]

			same := br == tr && bg == tg && bb == tb && ba == ta
			if !same {
				localChanged++
			}

			if diff == nil {
				continue
			}

			diffOffset := diffRowStart + x*4
			if same {
				diff.Pix[diffOffset] = br
				diff.Pix[diffOffset+1] = bg
				diff.Pix[diffOffset+2] = bb
				diff.Pix[diffOffset+3] = p.config.BackdropAlpha
			} else {
				diff.Pix[diffOffset] = highlight.R
				diff.Pix[diffOffset+1] = highlight.G
				diff.Pix[diffOffset+2] = highlight.B
				diff.Pix[diffOffset+3] = highlight.A
			}
		}
	}

	atomic.AddInt64(changedCount, localChanged)
}

func changedPercent(changed int64, total int64) float64 {
	if total <= 0 {
		return 0.0
	}
	return float64(changed) / float64(total) * 100
}
