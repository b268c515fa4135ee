package seeds

import (
	"strings"
	"testing"

	"github.com/pearlryder/CellProfiler-plugins/pkg/ndimage"
)

// defaultParams returns the baseline parameters used across tests:
// maximum peak count unlimited, disk dilation, serial scan for
// reproducible timing
func defaultParams() *Params {
	return &Params{
		GaussianSigma: 1,
		MinDistance:   1,
		ThresholdRel:  0,
		ExcludeBorder: 0,
		MaxSeeds:      0,
		Element:       ndimage.Disk(1),
		NumCores:      1,
	}
}

// drawDisc sets a filled disc of the given radius into a 2D field
func drawDisc(f *ndimage.Field, cy, cx, radius int) {
	height, width := f.Shape[0], f.Shape[1]
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dy, dx := y-cy, x-cx
			if dy*dy+dx*dx <= radius*radius {
				f.Data[y*width+x] = 1
			}
		}
	}
}

// TestGenerateSingleDisc verifies the concrete single-object scenario:
// one disc of radius 10 centered in a 41x41 field yields exactly one seed
// at the disc center
func TestGenerateSingleDisc(t *testing.T) {
	labels := ndimage.NewField([]int{41, 41})
	drawDisc(labels, 20, 20, 10)

	g := NewGenerator(defaultParams())
	mask, err := g.Generate(labels)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	peaks := g.Peaks()
	if len(peaks) != 1 {
		t.Fatalf("Expected exactly 1 seed, got %d", len(peaks))
	}
	if peaks[0].Coords[0] != 20 || peaks[0].Coords[1] != 20 {
		t.Errorf("Expected the seed at the disc center (20,20), got (%d,%d)",
			peaks[0].Coords[0], peaks[0].Coords[1])
	}
	if !mask.Data[20*41+20] {
		t.Errorf("Expected the output mask to be set at the disc center")
	}
}

// TestGenerateTwoDiscs verifies the fused-object scenario: two discs of
// radius 8 with centers 20 pixels apart yield exactly two seeds, one at
// each center
func TestGenerateTwoDiscs(t *testing.T) {
	labels := ndimage.NewField([]int{41, 41})
	drawDisc(labels, 20, 10, 8)
	drawDisc(labels, 20, 30, 8)

	g := NewGenerator(defaultParams())
	if _, err := g.Generate(labels); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	peaks := g.Peaks()
	if len(peaks) != 2 {
		t.Fatalf("Expected exactly 2 seeds, got %d", len(peaks))
	}

	found := map[[2]int]bool{}
	for _, p := range peaks {
		found[[2]int{p.Coords[0], p.Coords[1]}] = true
	}
	for _, want := range [][2]int{{20, 10}, {20, 30}} {
		if !found[want] {
			t.Errorf("Expected a seed at (%d,%d), seeds: %v", want[0], want[1], peaks)
		}
	}
}

// TestGenerateAllZeroInput verifies the degenerate all-background case
// returns an all-false mask without error
func TestGenerateAllZeroInput(t *testing.T) {
	labels := ndimage.NewField([]int{17, 23})

	g := NewGenerator(defaultParams())
	mask, err := g.Generate(labels)
	if err != nil {
		t.Fatalf("Expected no error for all-zero input, got: %v", err)
	}

	if mask.CountTrue() != 0 {
		t.Errorf("Expected an all-false mask, got %d set pixels", mask.CountTrue())
	}
	if mask.Shape[0] != 17 || mask.Shape[1] != 23 {
		t.Errorf("Expected output shape [17 23], got %v", mask.Shape)
	}
	if got := g.GetMetrics().SeedCount; got != 0 {
		t.Errorf("Expected zero seed count, got %d", got)
	}
}

// TestGenerateShapePreserved verifies the output mask always matches the
// input shape, in 2D and 3D
func TestGenerateShapePreserved(t *testing.T) {
	labels2 := ndimage.NewField([]int{13, 19})
	drawDisc(labels2, 6, 9, 4)

	g := NewGenerator(defaultParams())
	mask2, err := g.Generate(labels2)
	if err != nil {
		t.Fatalf("2D Generate failed: %v", err)
	}
	if mask2.Shape[0] != 13 || mask2.Shape[1] != 19 {
		t.Errorf("Expected 2D output shape [13 19], got %v", mask2.Shape)
	}

	labels3 := ndimage.NewField([]int{9, 9, 9})
	for z := 1; z < 8; z++ {
		for y := 1; y < 8; y++ {
			for x := 1; x < 8; x++ {
				dz, dy, dx := z-4, y-4, x-4
				if dz*dz+dy*dy+dx*dx <= 9 {
					labels3.Data[z*81+y*9+x] = 1
				}
			}
		}
	}

	params := defaultParams()
	params.Element = ndimage.Ball(1)
	g3 := NewGenerator(params)
	mask3, err := g3.Generate(labels3)
	if err != nil {
		t.Fatalf("3D Generate failed: %v", err)
	}
	if mask3.Shape[0] != 9 || mask3.Shape[1] != 9 || mask3.Shape[2] != 9 {
		t.Errorf("Expected 3D output shape [9 9 9], got %v", mask3.Shape)
	}

	peaks := g3.Peaks()
	if len(peaks) != 1 {
		t.Fatalf("Expected 1 seed in the 3D ball, got %d", len(peaks))
	}
	for d := 0; d < 3; d++ {
		if peaks[0].Coords[d] != 4 {
			t.Errorf("Expected the 3D seed at the ball center, got %v", peaks[0].Coords)
			break
		}
	}
}

// TestGenerateDimensionMismatch verifies a structuring element of the
// wrong dimensionality fails before any numeric stage runs
func TestGenerateDimensionMismatch(t *testing.T) {
	labels := ndimage.NewField([]int{10, 10})
	drawDisc(labels, 5, 5, 3)

	params := defaultParams()
	params.Element = ndimage.Ball(1)

	g := NewGenerator(params)
	mask, err := g.Generate(labels)
	if err == nil {
		t.Fatalf("Expected a configuration error for a 3D element on 2D input")
	}
	if mask != nil {
		t.Errorf("Expected no mask on configuration error")
	}
	if !strings.Contains(err.Error(), "3 != 2") {
		t.Errorf("Expected the mismatched dimensions in the error, got: %v", err)
	}
}

// TestGenerateInvalidScalars verifies negative scalar parameters are
// rejected up front
func TestGenerateInvalidScalars(t *testing.T) {
	labels := ndimage.NewField([]int{10, 10})
	drawDisc(labels, 5, 5, 3)

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative sigma", func(p *Params) { p.GaussianSigma = -1 }},
		{"negative min distance", func(p *Params) { p.MinDistance = -2 }},
		{"negative threshold", func(p *Params) { p.ThresholdRel = -0.5 }},
		{"negative border", func(p *Params) { p.ExcludeBorder = -3 }},
	}

	for _, c := range cases {
		params := defaultParams()
		c.mutate(params)
		if _, err := NewGenerator(params).Generate(labels); err == nil {
			t.Errorf("Expected an error for %s", c.name)
		}
	}
}

// TestGenerateMaxSeedsOne verifies the count limit keeps the candidate
// with the largest internal distance
func TestGenerateMaxSeedsOne(t *testing.T) {
	labels := ndimage.NewField([]int{41, 41})
	drawDisc(labels, 20, 10, 6)
	drawDisc(labels, 20, 30, 9)

	params := defaultParams()
	params.MaxSeeds = 1

	g := NewGenerator(params)
	if _, err := g.Generate(labels); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	peaks := g.Peaks()
	if len(peaks) != 1 {
		t.Fatalf("Expected exactly 1 seed with MaxSeeds=1, got %d", len(peaks))
	}
	// The larger disc has the deeper interior
	if peaks[0].Coords[0] != 20 || peaks[0].Coords[1] != 30 {
		t.Errorf("Expected the seed at the larger disc's center (20,30), got (%d,%d)",
			peaks[0].Coords[0], peaks[0].Coords[1])
	}
}

// TestGenerateDilationExtensive verifies every pre-dilation seed location
// remains set in the final mask
func TestGenerateDilationExtensive(t *testing.T) {
	labels := ndimage.NewField([]int{41, 41})
	drawDisc(labels, 20, 10, 8)
	drawDisc(labels, 20, 30, 8)

	params := defaultParams()
	params.Element = ndimage.Square(5)

	g := NewGenerator(params)
	mask, err := g.Generate(labels)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, p := range g.Peaks() {
		if !mask.Data[p.Coords[0]*41+p.Coords[1]] {
			t.Errorf("Seed at %v was removed by dilation", p.Coords)
		}
	}
	if mask.CountTrue() < len(g.Peaks()) {
		t.Errorf("Expected the dilated mask to cover at least the seed count")
	}
}

// TestGenerateMetrics verifies the run summary is filled
func TestGenerateMetrics(t *testing.T) {
	labels := ndimage.NewField([]int{41, 41})
	drawDisc(labels, 20, 20, 10)

	g := NewGenerator(defaultParams())
	if _, err := g.Generate(labels); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	m := g.GetMetrics()
	if m.SeedCount != 1 {
		t.Errorf("Expected seed count 1, got %d", m.SeedCount)
	}
	if m.MaxInternalDistance < 9 || m.MaxInternalDistance > 12 {
		t.Errorf("Expected max internal distance near the disc radius, got %f", m.MaxInternalDistance)
	}
	if m.MeanPeakValue <= 0 {
		t.Errorf("Expected a positive mean peak value, got %f", m.MeanPeakValue)
	}
	if m.ForegroundFraction <= 0 || m.ForegroundFraction >= 1 {
		t.Errorf("Expected foreground fraction in (0,1), got %f", m.ForegroundFraction)
	}
}
