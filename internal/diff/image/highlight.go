package image

import (
	"image"
	"image/color"
	"runtime"
	"sync"
	"sync/atomic"
)

type HighlightResult struct {
	Image *image.NRGBA
	// DiffAmount is the fraction of pixels with at least one sample out of tolerance
	DiffAmount float64
}

// HighlightDiff paints every pixel that has a sample out of tolerance red and
// copies the baseline pixel everywhere else.
type HighlightDiff struct {
	tolerance uint8
}

func NewHighlightDiff(tolerance uint8) *HighlightDiff {
	return &HighlightDiff{
		tolerance,
	}
}

func (h *HighlightDiff) Calculate(baseline *Decoded, target *Decoded) *HighlightResult {
	diff := image.NewNRGBA(image.Rect(0, 0, baseline.Width, baseline.Height))
	totalPixelCount := int64(baseline.Width * baseline.Height)
	if totalPixelCount == 0 {
		return &HighlightResult{Image: diff}
	}

	numWorkers := min(runtime.GOMAXPROCS(0), baseline.Height)
	rowsPerWorker := baseline.Height / numWorkers

	var changedPixelCount int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = baseline.Height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			h.process(baseline, target, diff, startY, endY, &changedPixelCount)
		}(startY, endY)
	}

	wg.Wait()

	return &HighlightResult{
		Image:      diff,
		DiffAmount: float64(changedPixelCount) / float64(totalPixelCount),
	}
}

func (h *HighlightDiff) process(baseline *Decoded, target *Decoded, diff *image.NRGBA, startY int, endY int, changedCount *int64) {
	var localChanged int64
	bpp := baseline.Format.BytesPerPixel()

	for y := startY; y < endY; y++ {
		for x := 0; x < baseline.Width; x++ {
			offset := (y*baseline.Width + x) * bpp

			if h.exceeds(baseline.Pix[offset:offset+bpp], target.Pix[offset:offset+bpp]) {
				diff.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
				localChanged++
			} else {
				diff.SetNRGBA(x, y, baseline.NRGBAAt(x, y))
			}
		}
	}

	atomic.AddInt64(changedCount, localChanged)
}

func (h *HighlightDiff) exceeds(baseline []byte, target []byte) bool {
	for i := range baseline {
		if absDiff(baseline[i], target[i]) > h.tolerance {
			return true
		}
	}
	return false
}
