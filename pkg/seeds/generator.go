// Package seeds implements the seed generation pipeline: it locates marker
// points inside previously segmented objects for later use by watershed-style
// splitting. Seeds are produced in four ordered stages sharing one buffer
// chain:
//
//  1. Exact Euclidean distance transform of the labeled mask
//  2. Gaussian smoothing of the distance field
//  3. Constrained local-maximum extraction
//  4. Binary dilation of the accepted markers
//
// The pipeline attempts to locate the centers of objects even when they are
// fused or under-segmented: smoothing merges the spurious boundary maxima of
// the raw distance field into one dominant interior maximum per object lobe.
package seeds

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pearlryder/CellProfiler-plugins/pkg/ndimage"
	"github.com/pearlryder/CellProfiler-plugins/pkg/visualization"
)

// Params holds the seed generation configuration
type Params struct {
	// GaussianSigma is the standard deviation of the smoothing kernel
	// applied to the distance field. Zero disables smoothing.
	GaussianSigma float64

	// MinDistance is the minimum separation between seeds in voxels.
	// Zero disables the separation rule; 1 yields the maximum number
	// of seeds.
	MinDistance int

	// ThresholdRel keeps only seeds whose internal distance reaches this
	// fraction of the field maximum. Since the threshold applies to the
	// distance-transformed field it acts as a minimum object size.
	// Zero disables the filter.
	ThresholdRel float64

	// ExcludeBorder suppresses seed generation within this many voxels
	// of the array edge
	ExcludeBorder int

	// MaxSeeds caps the number of generated seeds, keeping those with
	// the largest internal distance. Zero or a negative value means no
	// limit.
	MaxSeeds int

	// Element is the structuring element used to dilate the seeds. Its
	// dimensionality must equal the input's; this is validated before
	// any numeric stage runs.
	Element *ndimage.StructElem

	// NumCores bounds the parallelism of the peak scan. Zero uses all
	// available CPUs. The result is identical for any value.
	NumCores int

	// SaveIntermediaryResults enables saving each pipeline stage as PNG
	// renderings under IntermediaryDir
	SaveIntermediaryResults bool

	// IntermediaryDir is the directory for intermediary stage output.
	// Only used when SaveIntermediaryResults is true.
	IntermediaryDir string

	// Verbose enables per-stage progress output
	Verbose bool
}

// Metrics summarizes a completed run
type Metrics struct {
	// SeedCount is the number of accepted seeds before dilation
	SeedCount int

	// MaxInternalDistance is the largest value of the distance field,
	// i.e. the depth of the most interior point of any object
	MaxInternalDistance float64

	// MeanPeakValue is the mean smoothed intensity over accepted seeds
	MeanPeakValue float64

	// PeakValueStdDev is the standard deviation of the accepted seed
	// intensities; zero when fewer than two seeds were accepted
	PeakValueStdDev float64

	// ForegroundFraction is the fraction of input voxels that are
	// labeled as objects
	ForegroundFraction float64
}

// Generator runs the seed generation pipeline. A Generator is stateless
// between runs apart from the metrics and peak list of the last run.
type Generator struct {
	params  *Params
	metrics Metrics
	peaks   []ndimage.Peak
}

// NewGenerator creates a generator with the provided parameters
func NewGenerator(params *Params) *Generator {
	return &Generator{params: params}
}

// Generate produces the dilated seed mask for a labeled object field.
// Voxels with nonzero values are treated as foreground regardless of their
// label value. The returned mask always has the input's shape; degenerate
// inputs (all background, flat fields) yield an all-false mask rather than
// an error. Configuration errors are detected before any numeric work.
func (g *Generator) Generate(labels *ndimage.Field) (*ndimage.Mask, error) {
	if err := g.validate(labels); err != nil {
		return nil, err
	}

	// Step 1: distance transform, border treated as background
	g.logStep("Step 1: Computing distance transform...")
	distance := ndimage.DistanceTransform(labels)
	g.saveIntermediary("01_distance", visualization.NewFieldViewer(distance))

	// Step 2: smooth away the boundary-quantization maxima
	g.logStep("Step 2: Smoothing distance field...")
	smoothed := ndimage.GaussianSmooth(distance, g.params.GaussianSigma)
	g.saveIntermediary("02_smoothed", visualization.NewFieldViewer(smoothed))

	// Step 3: constrained local maxima
	g.logStep("Step 3: Extracting local maxima...")
	g.peaks = ndimage.PeakLocalMax(smoothed, ndimage.PeakParams{
		MinDistance:   g.params.MinDistance,
		ThresholdRel:  g.params.ThresholdRel,
		ExcludeBorder: g.params.ExcludeBorder,
		MaxPeaks:      g.params.MaxSeeds,
		NumWorkers:    g.params.NumCores,
	})
	markers := ndimage.PeaksToMask(g.peaks, labels.Shape)
	g.saveIntermediary("03_peaks", visualization.NewMaskViewer(markers))

	// Step 4: dilate the markers to their configured footprint
	g.logStep("Step 4: Dilating seeds...")
	seeds := ndimage.BinaryDilation(markers, g.params.Element)
	g.saveIntermediary("04_seeds", visualization.NewMaskViewer(seeds))

	g.computeMetrics(labels, distance)
	return seeds, nil
}

// GetMetrics returns the metrics of the last completed run
func (g *Generator) GetMetrics() Metrics {
	return g.metrics
}

// Peaks returns the accepted seed locations of the last completed run,
// before dilation, ordered by descending intensity
func (g *Generator) Peaks() []ndimage.Peak {
	return g.peaks
}

// validate checks the configuration against the input before any numeric
// stage executes
func (g *Generator) validate(labels *ndimage.Field) error {
	if labels == nil || labels.Rank() == 0 {
		return fmt.Errorf("input field is empty")
	}

	rank := labels.Rank()
	if rank < 2 || rank > 3 {
		return fmt.Errorf("input must be 2D or 3D, got %dD", rank)
	}

	if g.params.Element == nil {
		return fmt.Errorf("no structuring element configured")
	}
	if elemRank := g.params.Element.Rank(); elemRank != rank {
		return fmt.Errorf("structuring element does not match object dimensions: %d != %d", elemRank, rank)
	}

	if g.params.GaussianSigma < 0 {
		return fmt.Errorf("gaussian sigma must be non-negative, got %g", g.params.GaussianSigma)
	}
	if g.params.MinDistance < 0 {
		return fmt.Errorf("minimum distance must be non-negative, got %d", g.params.MinDistance)
	}
	if g.params.ThresholdRel < 0 {
		return fmt.Errorf("relative threshold must be non-negative, got %g", g.params.ThresholdRel)
	}
	if g.params.ExcludeBorder < 0 {
		return fmt.Errorf("border exclusion must be non-negative, got %d", g.params.ExcludeBorder)
	}
	return nil
}

// computeMetrics fills the run summary from the pipeline buffers
func (g *Generator) computeMetrics(labels, distance *ndimage.Field) {
	m := Metrics{SeedCount: len(g.peaks)}

	if distance.Size() > 0 {
		m.MaxInternalDistance = floats.Max(distance.Data)
	}

	if len(g.peaks) > 0 {
		values := make([]float64, len(g.peaks))
		for i, p := range g.peaks {
			values[i] = p.Value
		}
		m.MeanPeakValue = stat.Mean(values, nil)
		if len(values) > 1 {
			m.PeakValueStdDev = stat.StdDev(values, nil)
		}
	}

	foreground := 0
	for _, v := range labels.Data {
		if v != 0 {
			foreground++
		}
	}
	if labels.Size() > 0 {
		m.ForegroundFraction = float64(foreground) / float64(labels.Size())
	}

	g.metrics = m
}

// saveIntermediary renders a pipeline stage under the intermediary
// directory. Failures here are reported but do not abort the run, matching
// the advisory nature of the output.
func (g *Generator) saveIntermediary(stage string, viewer *visualization.Viewer) {
	if !g.params.SaveIntermediaryResults {
		return
	}

	dir := filepath.Join(g.params.IntermediaryDir, stage)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("Warning: Failed to create intermediary directory %s: %v\n", dir, err)
		return
	}

	var err error
	if viewer.Rank() == 3 {
		err = viewer.SaveSliceSequence("z", dir)
	} else {
		err = viewer.SavePNG(filepath.Join(dir, stage+".png"))
	}
	if err != nil {
		fmt.Printf("Warning: Failed to save intermediary result %s: %v\n", stage, err)
	}
}

func (g *Generator) logStep(msg string) {
	if g.params.Verbose {
		fmt.Println(msg)
	}
}
