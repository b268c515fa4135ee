package ndimage

import (
	"math"
	"testing"
)

// TestGaussianSmoothZeroSigma verifies that sigma zero is a no-op that
// still allocates a fresh buffer
func TestGaussianSmoothZeroSigma(t *testing.T) {
	f := NewField([]int{4, 4})
	for i := range f.Data {
		f.Data[i] = float64(i)
	}

	out := GaussianSmooth(f, 0)

	if &out.Data[0] == &f.Data[0] {
		t.Errorf("Expected a fresh output buffer, got the input buffer")
	}
	for i, v := range out.Data {
		if v != f.Data[i] {
			t.Errorf("Expected unchanged value %f at index %d, got %f", f.Data[i], i, v)
		}
	}
}

// TestGaussianSmoothPreservesShape verifies the output shape matches the
// input for both 2D and 3D fields
func TestGaussianSmoothPreservesShape(t *testing.T) {
	shapes := [][]int{{5, 9}, {3, 4, 5}}

	for _, shape := range shapes {
		f := NewField(shape)
		out := GaussianSmooth(f, 1.5)

		if len(out.Shape) != len(shape) {
			t.Fatalf("Expected rank %d, got %d", len(shape), len(out.Shape))
		}
		for d := range shape {
			if out.Shape[d] != shape[d] {
				t.Errorf("Expected shape[%d]=%d, got %d", d, shape[d], out.Shape[d])
			}
		}
	}
}

// TestGaussianSmoothImpulse verifies that a centered impulse keeps its
// maximum in place and that the kernel conserves mass away from edges
func TestGaussianSmoothImpulse(t *testing.T) {
	size := 21
	f := NewField([]int{size, size})
	center := (size/2)*size + size/2
	f.Data[center] = 1

	out := GaussianSmooth(f, 1)

	maxIdx := 0
	sum := 0.0
	for i, v := range out.Data {
		if v > out.Data[maxIdx] {
			maxIdx = i
		}
		sum += v
	}

	if maxIdx != center {
		t.Errorf("Expected maximum at center index %d, got %d", center, maxIdx)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Expected mass conservation, total %f", sum)
	}
}

// TestGaussianSmoothNonNegative verifies smoothing a non-negative field
// never produces negative values
func TestGaussianSmoothNonNegative(t *testing.T) {
	f := NewField([]int{8, 8})
	f.Data[3*8+3] = 5
	f.Data[4*8+4] = 2

	out := GaussianSmooth(f, 2)

	for i, v := range out.Data {
		if v < 0 {
			t.Errorf("Expected non-negative value at index %d, got %f", i, v)
		}
	}
}

// TestGaussianKernelNormalized verifies the kernel weights sum to one
func TestGaussianKernelNormalized(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 3} {
		kernel := gaussianKernel(sigma)

		if len(kernel)%2 != 1 {
			t.Errorf("Expected odd kernel length for sigma %f, got %d", sigma, len(kernel))
		}

		sum := 0.0
		for _, w := range kernel {
			sum += w
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("Expected kernel sum 1 for sigma %f, got %f", sigma, sum)
		}
	}
}
