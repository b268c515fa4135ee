package ndimage

import (
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Peak is a single accepted local maximum
type Peak struct {
	// Coords is the position of the peak, one entry per dimension
	Coords []int

	// Value is the field intensity at the peak
	Value float64
}

// PeakParams controls local-maximum extraction
type PeakParams struct {
	// MinDistance is the minimum Chebyshev separation between accepted
	// peaks: a candidate within MinDistance of an already-accepted peak
	// is suppressed. Zero disables the separation rule. A value of 1
	// suppresses only directly adjacent voxels, which strict local maxima
	// cannot occupy anyway, so 1 yields the maximum number of peaks.
	MinDistance int

	// ThresholdRel keeps only candidates whose intensity reaches
	// ThresholdRel times the field maximum. Zero disables the filter.
	ThresholdRel float64

	// ExcludeBorder drops candidates within this many voxels of any
	// array edge, in any dimension
	ExcludeBorder int

	// MaxPeaks caps the number of accepted peaks, keeping the highest
	// intensities. Zero or a negative value means no limit.
	MaxPeaks int

	// NumWorkers sets the parallelism of the candidate scan. Zero or a
	// negative value uses all available CPUs. The scan is deterministic
	// regardless of worker count.
	NumWorkers int
}

// PeakLocalMax finds local maxima of the field subject to the given
// constraints.
//
// Every voxel that strictly exceeds all of its immediate neighbors (the
// full 3^D-1 neighborhood, out-of-bounds neighbors ignored) and strictly
// exceeds the field minimum is a candidate. Candidates below the relative
// intensity threshold or inside the excluded border are dropped. The
// remainder are ordered by descending intensity, with ties broken by
// row-major coordinate order, and accepted greedily: a candidate within
// MinDistance (Chebyshev) of an accepted peak is rejected. Acceptance
// stops once MaxPeaks have been taken.
//
// A flat field has no strict local maxima and yields an empty result
// rather than an error.
func PeakLocalMax(f *Field, params PeakParams) []Peak {
	if f.Size() == 0 {
		return nil
	}

	minVal := floats.Min(f.Data)
	maxVal := floats.Max(f.Data)
	if maxVal == minVal {
		// Uniform intensity, nothing strictly dominates its neighborhood
		return nil
	}

	// Candidates must strictly exceed the field minimum (background never
	// seeds) and, when the relative filter is enabled, reach the relative
	// threshold. ThresholdRel of zero disables the relative filter.
	relThreshold := 0.0
	if params.ThresholdRel > 0 {
		relThreshold = params.ThresholdRel * maxVal
	}

	candidates := scanCandidates(f, minVal, relThreshold, params.ExcludeBorder, params.NumWorkers)
	if len(candidates) == 0 {
		return nil
	}

	// Descending intensity; the stable sort preserves the row-major scan
	// order for equal intensities, which fixes the tie-break
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	accepted := make([]Peak, 0, len(candidates))
	for _, c := range candidates {
		if params.MaxPeaks > 0 && len(accepted) >= params.MaxPeaks {
			break
		}
		if params.MinDistance > 0 && tooClose(c, accepted, params.MinDistance) {
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted
}

// PeaksToMask converts an accepted peak list into a boolean marker mask
// of the given shape
func PeaksToMask(peaks []Peak, shape []int) *Mask {
	mask := NewMask(shape)
	strides := stridesOf(shape)
	for _, p := range peaks {
		mask.Data[indexAt(p.Coords, strides)] = true
	}
	return mask
}

// scanCandidates collects every voxel that passes the threshold and border
// filters and strictly dominates its immediate neighborhood. The scan is
// chunked along the leading axis; each worker emits candidates in row-major
// order within its chunk and the chunks are concatenated in order, so the
// result is in row-major order regardless of worker count.
func scanCandidates(f *Field, minVal, relThreshold float64, border, numWorkers int) []Peak {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	lead := f.Shape[0]
	if numWorkers > lead {
		numWorkers = lead
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	chunks := make([][]Peak, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		lo := lead * w / numWorkers
		hi := lead * (w + 1) / numWorkers

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			chunks[w] = scanRange(f, minVal, relThreshold, border, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	var candidates []Peak
	for _, c := range chunks {
		candidates = append(candidates, c...)
	}
	return candidates
}

// scanRange scans leading-axis indices [lo, hi) for candidates
func scanRange(f *Field, minVal, relThreshold float64, border, lo, hi int) []Peak {
	rank := f.Rank()
	strides := stridesOf(f.Shape)
	offsets := neighborOffsets(rank)
	coords := make([]int, rank)
	neighbor := make([]int, rank)

	var found []Peak
	leadStride := strides[0]
	for idx := lo * leadStride; idx < hi*leadStride; idx++ {
		v := f.Data[idx]
		if v <= minVal {
			continue
		}
		if relThreshold > 0 && v < relThreshold {
			continue
		}

		coordsAt(idx, f.Shape, coords)
		if border > 0 && insideBorder(coords, f.Shape, border) {
			continue
		}

		isPeak := true
		for _, off := range offsets {
			inBounds := true
			for d := 0; d < rank; d++ {
				neighbor[d] = coords[d] + off[d]
				if neighbor[d] < 0 || neighbor[d] >= f.Shape[d] {
					inBounds = false
					break
				}
			}
			if !inBounds {
				continue
			}
			if f.Data[indexAt(neighbor, strides)] >= v {
				isPeak = false
				break
			}
		}
		if isPeak {
			found = append(found, Peak{Coords: cloneShape(coords), Value: v})
		}
	}
	return found
}

// insideBorder reports whether the coordinates lie within the excluded
// border region in any dimension
func insideBorder(coords, shape []int, border int) bool {
	for d, c := range coords {
		if c < border || c >= shape[d]-border {
			return true
		}
	}
	return false
}

// tooClose reports whether the candidate lies within the separation
// distance of any already-accepted peak
func tooClose(c Peak, accepted []Peak, minDistance int) bool {
	for _, a := range accepted {
		if chebyshev(c.Coords, a.Coords) <= minDistance {
			return true
		}
	}
	return false
}

// chebyshev returns the Chebyshev (maximum per-axis) distance between
// two coordinate tuples of equal rank
func chebyshev(a, b []int) int {
	max := 0
	for d := range a {
		diff := a[d] - b[d]
		if diff < 0 {
			diff = -diff
		}
		if diff > max {
			max = diff
		}
	}
	return max
}

// neighborOffsets enumerates the 3^rank-1 offsets of the immediate
// neighborhood, excluding the zero offset
func neighborOffsets(rank int) [][]int {
	total := 1
	for d := 0; d < rank; d++ {
		total *= 3
	}

	offsets := make([][]int, 0, total-1)
	for i := 0; i < total; i++ {
		off := make([]int, rank)
		rem := i
		zero := true
		for d := rank - 1; d >= 0; d-- {
			off[d] = rem%3 - 1
			rem /= 3
			if off[d] != 0 {
				zero = false
			}
		}
		if zero {
			continue
		}
		offsets = append(offsets, off)
	}
	return offsets
}
