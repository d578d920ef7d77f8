package image

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// Buffers shorter than this are scanned by a single goroutine.
const parallelScanThreshold = 1 << 16

// How often a worker checks whether a lower offset already failed.
const scanCheckInterval = 4096

type ToleranceDiff struct {
	tolerance uint8
}

func NewToleranceDiff(tolerance uint8) *ToleranceDiff {
	return &ToleranceDiff{
		tolerance,
	}
}

// Calculate walks both sample buffers at matching offsets and reports the
// lowest offset whose absolute difference exceeds the tolerance. The buffers
// are expected to share dimensions and format.
func (t *ToleranceDiff) Calculate(baseline *Decoded, target *Decoded) *DiffResult {
	n := min(len(baseline.Pix), len(target.Pix))
	if n == 0 {
		return &DiffResult{}
	}

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := runtime.GOMAXPROCS(0)
	if n < parallelScanThreshold {
		numWorkers = 1
	}
	chunk := (n + numWorkers - 1) / numWorkers

	var lowest atomic.Int64
	lowest.Store(int64(n))

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)

		wg.Add(1)
		go func(start int, end int) {
			defer wg.Done()
			t.scan(baseline.Pix, target.Pix, start, end, &lowest)
		}(start, end)
	}
	wg.Wait()

	offset := int(lowest.Load())
	if offset >= n {
		return &DiffResult{}
	}

	pixel := offset
	if bpp := baseline.Format.BytesPerPixel(); bpp > 0 {
		pixel = offset / bpp
	}
	x, y := 0, 0
	if baseline.Width > 0 {
		x = pixel % baseline.Width
		y = pixel / baseline.Width
	}

	return &DiffResult{
		Found:      true,
		Offset:     offset,
		Difference: absDiff(baseline.Pix[offset], target.Pix[offset]),
		X:          x,
		Y:          y,
	}
}

func (t *ToleranceDiff) scan(baseline []byte, target []byte, start int, end int, lowest *atomic.Int64) {
	for i := start; i < end; i++ {
		if (i-start)%scanCheckInterval == 0 && lowest.Load() < int64(start) {
			return
		}
		if absDiff(baseline[i], target[i]) > t.tolerance {
			storeMin(lowest, int64(i))
			return
		}
	}
}

func storeMin(v *atomic.Int64, candidate int64) {
	for {
		current := v.Load()
		if candidate >= current || v.CompareAndSwap(current, candidate) {
			return
		}
	}
}

func absDiff[T constraints.Unsigned](a T, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}
