// Package ndimage provides the n-dimensional image primitives used by the
// seed generation pipeline: shaped float fields and boolean masks stored as
// flat row-major buffers, an exact Euclidean distance transform, separable
// Gaussian smoothing, constrained local-maximum extraction and binary
// morphology. All routines allocate fresh output buffers and never mutate
// their inputs.
package ndimage

// Field is an n-dimensional scalar image stored as a flat row-major buffer.
// For a 2D field Shape is [height, width]; for a 3D field it is
// [depth, height, width], so the last axis always varies fastest.
type Field struct {
	// Data holds the voxel values in row-major order
	Data []float64

	// Shape holds the extent of each dimension
	Shape []int
}

// NewField allocates a zero-filled field with the given shape
func NewField(shape []int) *Field {
	return &Field{
		Data:  make([]float64, sizeOf(shape)),
		Shape: cloneShape(shape),
	}
}

// Rank returns the number of dimensions of the field
func (f *Field) Rank() int {
	return len(f.Shape)
}

// Size returns the total number of voxels in the field
func (f *Field) Size() int {
	return sizeOf(f.Shape)
}

// Clone returns a deep copy of the field
func (f *Field) Clone() *Field {
	out := NewField(f.Shape)
	copy(out.Data, f.Data)
	return out
}

// Mask is an n-dimensional boolean image with the same layout as Field
type Mask struct {
	// Data holds the voxel values in row-major order
	Data []bool

	// Shape holds the extent of each dimension
	Shape []int
}

// NewMask allocates an all-false mask with the given shape
func NewMask(shape []int) *Mask {
	return &Mask{
		Data:  make([]bool, sizeOf(shape)),
		Shape: cloneShape(shape),
	}
}

// Rank returns the number of dimensions of the mask
func (m *Mask) Rank() int {
	return len(m.Shape)
}

// CountTrue returns the number of set voxels in the mask
func (m *Mask) CountTrue() int {
	count := 0
	for _, v := range m.Data {
		if v {
			count++
		}
	}
	return count
}

// sizeOf returns the number of elements implied by a shape.
// An empty shape describes an empty buffer.
func sizeOf(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, n := range shape {
		size *= n
	}
	return size
}

// stridesOf returns the row-major stride of each dimension
func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= shape[d]
	}
	return strides
}

// coordsAt decomposes a flat index into per-dimension coordinates,
// writing them into the provided buffer to avoid allocation in hot loops
func coordsAt(idx int, shape []int, coords []int) {
	for d := len(shape) - 1; d >= 0; d-- {
		coords[d] = idx % shape[d]
		idx /= shape[d]
	}
}

// indexAt composes per-dimension coordinates into a flat index
func indexAt(coords, strides []int) int {
	idx := 0
	for d, c := range coords {
		idx += c * strides[d]
	}
	return idx
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
