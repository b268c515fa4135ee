package ndimage

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// gaussianTruncate is the kernel cutoff in standard deviations. Weights
// beyond four sigma are negligible for distance fields.
const gaussianTruncate = 4.0

// GaussianSmooth convolves the field with an isotropic Gaussian of the
// given standard deviation, applied separably along every axis. Lines are
// extended by clamping to the nearest edge sample. A sigma of zero (or
// below) returns an unmodified copy, making it a valid no-op configuration.
func GaussianSmooth(f *Field, sigma float64) *Field {
	if sigma <= 0 || f.Size() == 0 {
		return f.Clone()
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	out := f
	for axis := 0; axis < f.Rank(); axis++ {
		out = convolveAxis(out, kernel, radius, axis)
	}
	return out
}

// gaussianKernel builds a normalized symmetric kernel of radius ceil(4*sigma)
func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}

	kernel := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		kernel[i+radius] = math.Exp(-float64(i*i) / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// convolveAxis convolves every line of the field along one axis with the
// kernel, clamping out-of-range samples to the line ends
func convolveAxis(src *Field, kernel []float64, radius, axis int) *Field {
	dst := NewField(src.Shape)

	forEachLine(src.Shape, axis, func(base, stride, n int) {
		for i := 0; i < n; i++ {
			sum := 0.0
			for t := -radius; t <= radius; t++ {
				j := i + t
				if j < 0 {
					j = 0
				} else if j >= n {
					j = n - 1
				}
				sum += kernel[t+radius] * src.Data[base+j*stride]
			}
			dst.Data[base+i*stride] = sum
		}
	})

	return dst
}
