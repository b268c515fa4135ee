package ndimage

import "fmt"

// StructElem is a small boolean neighborhood used for binary dilation.
// Its center is the floor of half its shape in every dimension. All
// catalogue elements contain their center, which makes dilation by them
// extensive: no seed voxel is ever removed.
type StructElem struct {
	// Data holds the element voxels in row-major order
	Data []bool

	// Shape holds the extent of each dimension
	Shape []int
}

// Rank returns the dimensionality of the element
func (e *StructElem) Rank() int {
	return len(e.Shape)
}

// Disk returns a 2D element containing every pixel within the given
// Euclidean radius of the center
func Disk(radius int) *StructElem {
	return radialElem(2, radius, func(sq, r int) bool { return sq <= r*r })
}

// Ball is the 3D counterpart of Disk
func Ball(radius int) *StructElem {
	return radialElem(3, radius, func(sq, r int) bool { return sq <= r*r })
}

// Square returns a fully set 2D element of the given edge width
func Square(width int) *StructElem {
	return solidElem(2, width)
}

// Cube is the 3D counterpart of Square
func Cube(width int) *StructElem {
	return solidElem(3, width)
}

// Diamond returns a 2D element containing every pixel within the given
// city-block radius of the center
func Diamond(radius int) *StructElem {
	return manhattanElem(2, radius)
}

// Octahedron is the 3D counterpart of Diamond
func Octahedron(radius int) *StructElem {
	return manhattanElem(3, radius)
}

// ElemByName builds a catalogue element from its name and size. The size
// is the radius for disk, ball, diamond and octahedron, and the edge width
// for square and cube. Unknown names are a configuration error.
func ElemByName(name string, size int) (*StructElem, error) {
	switch name {
	case "disk":
		return Disk(size), nil
	case "ball":
		return Ball(size), nil
	case "square":
		return Square(size), nil
	case "cube":
		return Cube(size), nil
	case "diamond":
		return Diamond(size), nil
	case "octahedron":
		return Octahedron(size), nil
	default:
		return nil, fmt.Errorf("unknown structuring element shape %q (want disk, ball, square, cube, diamond or octahedron)", name)
	}
}

// BinaryDilation expands every set voxel of the mask to cover the
// structuring element centered on it, clipped at the array bounds.
// Overlapping dilations merge into one connected blob; that merging is
// accepted behavior. The element's dimensionality must equal the mask's;
// callers are expected to have validated this up front.
func BinaryDilation(m *Mask, elem *StructElem) *Mask {
	out := NewMask(m.Shape)
	rank := m.Rank()

	// Element offsets relative to its center
	var offsets [][]int
	elemCoords := make([]int, rank)
	for idx, set := range elem.Data {
		if !set {
			continue
		}
		coordsAt(idx, elem.Shape, elemCoords)
		off := make([]int, rank)
		for d := range off {
			off[d] = elemCoords[d] - elem.Shape[d]/2
		}
		offsets = append(offsets, off)
	}

	strides := stridesOf(m.Shape)
	coords := make([]int, rank)
	target := make([]int, rank)
	for idx, set := range m.Data {
		if !set {
			continue
		}
		coordsAt(idx, m.Shape, coords)
		for _, off := range offsets {
			inBounds := true
			for d := 0; d < rank; d++ {
				target[d] = coords[d] + off[d]
				if target[d] < 0 || target[d] >= m.Shape[d] {
					inBounds = false
					break
				}
			}
			if inBounds {
				out.Data[indexAt(target, strides)] = true
			}
		}
	}
	return out
}

// radialElem builds an element of the given rank keeping offsets whose
// squared Euclidean norm passes the predicate
func radialElem(rank, radius int, keep func(sq, r int) bool) *StructElem {
	if radius < 0 {
		radius = 0
	}
	e := newElem(rank, 2*radius+1)
	eachOffset(e, radius, func(idx int, off []int) {
		sq := 0
		for _, o := range off {
			sq += o * o
		}
		e.Data[idx] = keep(sq, radius)
	})
	return e
}

// manhattanElem builds an element keeping offsets within a city-block radius
func manhattanElem(rank, radius int) *StructElem {
	if radius < 0 {
		radius = 0
	}
	e := newElem(rank, 2*radius+1)
	eachOffset(e, radius, func(idx int, off []int) {
		sum := 0
		for _, o := range off {
			if o < 0 {
				sum -= o
			} else {
				sum += o
			}
		}
		e.Data[idx] = sum <= radius
	})
	return e
}

// solidElem builds a fully set element of the given edge width
func solidElem(rank, width int) *StructElem {
	if width < 1 {
		width = 1
	}
	e := newElem(rank, width)
	for i := range e.Data {
		e.Data[i] = true
	}
	return e
}

func newElem(rank, extent int) *StructElem {
	shape := make([]int, rank)
	for d := range shape {
		shape[d] = extent
	}
	return &StructElem{
		Data:  make([]bool, sizeOf(shape)),
		Shape: shape,
	}
}

// eachOffset visits every element voxel with its offset from the center
func eachOffset(e *StructElem, radius int, fn func(idx int, off []int)) {
	rank := e.Rank()
	coords := make([]int, rank)
	off := make([]int, rank)
	for idx := range e.Data {
		coordsAt(idx, e.Shape, coords)
		for d := range off {
			off[d] = coords[d] - radius
		}
		fn(idx, off)
	}
}
