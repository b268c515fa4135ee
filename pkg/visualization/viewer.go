// Package visualization renders pipeline fields and masks as grayscale PNG
// images, either as a single plane for 2D data or as per-axis slice
// sequences for 3D volumes.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"github.com/pearlryder/CellProfiler-plugins/pkg/ndimage"
)

// Viewer renders a scalar buffer of rank 2 or 3. Values are normalized to
// the buffer maximum when rendering, so distance fields and binary masks
// both produce full-range images.
type Viewer struct {
	data  []float64
	shape []int
}

// NewFieldViewer creates a viewer over a scalar field
func NewFieldViewer(f *ndimage.Field) *Viewer {
	return &Viewer{data: f.Data, shape: f.Shape}
}

// NewMaskViewer creates a viewer over a boolean mask, rendering set voxels
// white and clear voxels black
func NewMaskViewer(m *ndimage.Mask) *Viewer {
	data := make([]float64, len(m.Data))
	for i, set := range m.Data {
		if set {
			data[i] = 1
		}
	}
	return &Viewer{data: data, shape: m.Shape}
}

// Rank returns the dimensionality of the viewed buffer
func (v *Viewer) Rank() int {
	return len(v.shape)
}

// RenderPlane renders a 2D buffer as a grayscale image
func (v *Viewer) RenderPlane() (image.Image, error) {
	if v.Rank() != 2 {
		return nil, fmt.Errorf("RenderPlane requires 2D data, got %dD", v.Rank())
	}

	height, width := v.shape[0], v.shape[1]
	norm := v.normalization()

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, v.gray(v.data[y*width+x], norm))
		}
	}
	return img, nil
}

// ExtractSlice renders a 2D cross-section of a 3D buffer along the
// specified axis. The volume layout is [depth, height, width] with z as
// the leading axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if v.Rank() != 3 {
		return nil, fmt.Errorf("ExtractSlice requires 3D data, got %dD", v.Rank())
	}
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	depth, height, width := v.shape[0], v.shape[1], v.shape[2]
	norm := v.normalization()

	var img *image.Gray16
	switch axis {
	case "x", "X":
		// Slice along the YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}
		img = image.NewGray16(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetGray16(z, y, v.gray(v.data[z*width*height+y*width+position], norm))
			}
		}

	case "y", "Y":
		// Slice along the XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}
		img = image.NewGray16(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, z, v.gray(v.data[z*width*height+position*width+x], norm))
			}
		}

	case "z", "Z":
		// Slice along the XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}
		img = image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, v.gray(v.data[position*width*height+y*width+x], norm))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SavePNG renders a 2D buffer and writes it to the given path
func (v *Viewer) SavePNG(filename string) error {
	img, err := v.RenderPlane()
	if err != nil {
		return err
	}
	return writePNG(img, filename)
}

// SaveSliceSequence extracts and saves every slice of a 3D buffer along
// the specified axis into the output directory
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if v.Rank() != 3 {
		return fmt.Errorf("SaveSliceSequence requires 3D data, got %dD", v.Rank())
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.shape[2]
	case "y", "Y":
		maxPos = v.shape[1]
	case "z", "Z":
		maxPos = v.shape[0]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := writePNG(img, filename); err != nil {
			return err
		}
	}
	return nil
}

// normalization returns the scale factor mapping buffer values onto [0, 1]
func (v *Viewer) normalization() float64 {
	if len(v.data) == 0 {
		return 1
	}
	max := floats.Max(v.data)
	if max <= 0 {
		return 1
	}
	return 1 / max
}

func (v *Viewer) gray(value, norm float64) color.Gray16 {
	scaled := value * norm * 65535
	if scaled < 0 {
		scaled = 0
	} else if scaled > 65535 {
		scaled = 65535
	}
	return color.Gray16{Y: uint16(scaled)}
}

func writePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}
