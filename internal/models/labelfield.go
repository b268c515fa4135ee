package models

import (
	"image"

	"github.com/pearlryder/CellProfiler-plugins/pkg/ndimage"
)

// LabelField represents a decoded segmentation raster with provenance
type LabelField struct {
	// Labels holds the object identifiers in row-major order, 0 for
	// background
	Labels []int

	// Shape holds the extent of each dimension
	Shape []int

	// Source is the file the raster was decoded from
	Source string
}

// FromImage builds a label field from a grayscale-decodable image. Pixel
// luminance is used directly as the object identifier, so both binary
// masks (255 = foreground) and labeled rasters work.
func FromImage(img image.Image, source string) *LabelField {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	labels := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Standard luminance weighting on the 16-bit channels
			labels[y*width+x] = int((299*r + 587*g + 114*b) / 1000 >> 8)
		}
	}

	return &LabelField{
		Labels: labels,
		Shape:  []int{height, width},
		Source: source,
	}
}

// Field converts the label field into the pipeline's float representation
func (l *LabelField) Field() *ndimage.Field {
	f := ndimage.NewField(l.Shape)
	for i, v := range l.Labels {
		f.Data[i] = float64(v)
	}
	return f
}

// ForegroundCount returns the number of labeled (nonzero) pixels
func (l *LabelField) ForegroundCount() int {
	count := 0
	for _, v := range l.Labels {
		if v != 0 {
			count++
		}
	}
	return count
}
