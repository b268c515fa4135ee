package ndimage

import "math"

// edtInfinity stands in for +Inf inside the squared-distance envelope
// computation, where true infinities would produce NaN intersections
const edtInfinity = 1e20

// DistanceTransform computes the exact Euclidean distance from every
// foreground voxel (nonzero value) to the nearest background voxel (zero).
// The array border is treated as background: the input is padded with one
// layer of zeros on every side before the transform runs and cropped back
// afterwards, so objects touching the edge measure their distance to the
// edge rather than to interior background only.
//
// The returned field has the same shape as the input, is zero at background
// voxels and increases toward the interior of connected foreground regions.
func DistanceTransform(labels *Field) *Field {
	rank := labels.Rank()
	if rank == 0 || labels.Size() == 0 {
		return NewField(labels.Shape)
	}

	// Pad by one background layer per side in every dimension
	padShape := make([]int, rank)
	for d, n := range labels.Shape {
		padShape[d] = n + 2
	}
	padded := NewField(padShape)

	// Seed the squared-distance function: zero at background, "infinite"
	// at foreground. The pad ring stays zero by construction.
	padStrides := stridesOf(padShape)
	coords := make([]int, rank)
	for idx, v := range labels.Data {
		if v == 0 {
			continue
		}
		coordsAt(idx, labels.Shape, coords)
		padIdx := 0
		for d, c := range coords {
			padIdx += (c + 1) * padStrides[d]
		}
		padded.Data[padIdx] = edtInfinity
	}

	// Separable pass: transform every line along every axis
	lineLen := 0
	for _, n := range padShape {
		if n > lineLen {
			lineLen = n
		}
	}
	w := newEnvelopeWorkspace(lineLen)
	for axis := 0; axis < rank; axis++ {
		forEachLine(padShape, axis, func(base, stride, n int) {
			for i := 0; i < n; i++ {
				w.f[i] = padded.Data[base+i*stride]
			}
			squaredDistance1D(w, n)
			for i := 0; i < n; i++ {
				padded.Data[base+i*stride] = w.d[i]
			}
		})
	}

	// Crop the pad away and take square roots
	out := NewField(labels.Shape)
	for idx := range out.Data {
		coordsAt(idx, labels.Shape, coords)
		padIdx := 0
		for d, c := range coords {
			padIdx += (c + 1) * padStrides[d]
		}
		out.Data[idx] = math.Sqrt(padded.Data[padIdx])
	}
	return out
}

// envelopeWorkspace holds the scratch buffers for the one-dimensional
// squared-distance transform so they can be reused across lines
type envelopeWorkspace struct {
	f []float64 // input sample values
	d []float64 // output squared distances
	v []int     // parabola vertex positions
	z []float64 // parabola boundary positions
}

func newEnvelopeWorkspace(n int) *envelopeWorkspace {
	return &envelopeWorkspace{
		f: make([]float64, n),
		d: make([]float64, n),
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

// squaredDistance1D computes the one-dimensional squared-distance transform
// of w.f[:n] into w.d[:n] using the lower envelope of parabolas
// (Felzenszwalb & Huttenlocher). The transform is exact, so composing it
// along each axis yields the exact Euclidean distance in any dimension.
func squaredDistance1D(w *envelopeWorkspace, n int) {
	k := 0
	w.v[0] = 0
	w.z[0] = -edtInfinity
	w.z[1] = edtInfinity

	for q := 1; q < n; q++ {
		fq := w.f[q] + float64(q*q)
		var s float64
		for {
			p := w.v[k]
			s = (fq - (w.f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > w.z[k] {
				break
			}
			k--
		}
		k++
		w.v[k] = q
		w.z[k] = s
		w.z[k+1] = edtInfinity
	}

	k = 0
	for q := 0; q < n; q++ {
		for w.z[k+1] < float64(q) {
			k++
		}
		dq := q - w.v[k]
		w.d[q] = float64(dq*dq) + w.f[w.v[k]]
	}
}

// forEachLine invokes fn once per one-dimensional line running along the
// given axis, passing the flat index of the line's first element, the
// stride between consecutive elements and the line length
func forEachLine(shape []int, axis int, fn func(base, stride, n int)) {
	strides := stridesOf(shape)
	n := shape[axis]
	stride := strides[axis]
	size := sizeOf(shape)
	for idx := 0; idx < size; idx++ {
		if (idx/stride)%n != 0 {
			continue
		}
		fn(idx, stride, n)
	}
}
