package main

import (
	"flag"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pearlryder/CellProfiler-plugins/internal/models"
	"github.com/pearlryder/CellProfiler-plugins/pkg/config"
	"github.com/pearlryder/CellProfiler-plugins/pkg/ndimage"
	"github.com/pearlryder/CellProfiler-plugins/pkg/seeds"
	"github.com/pearlryder/CellProfiler-plugins/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Labeled object mask image (PNG or JPEG, nonzero = object)")
	outputPath := flag.String("output", "seeds.png", "Output seed mask filename")
	configPath := flag.String("config", "config.yaml", "Configuration file path")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: configured value)")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary results during processing")
	intermediaryDir := flag.String("intermediary-dir", "", "Directory to save intermediary results (default: configured value)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to write default configuration")
		}
		log.Info().Str("path", *configPath).Msg("Wrote default configuration")
		return
	}

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *saveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	if *intermediaryDir != "" {
		cfg.Output.IntermediaryDir = *intermediaryDir
	}

	labels, err := loadLabelField(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to load input mask")
	}
	log.Info().
		Str("source", labels.Source).
		Ints("shape", labels.Shape).
		Int("foregroundPixels", labels.ForegroundCount()).
		Msg("Loaded labeled mask")

	element, err := ndimage.ElemByName(cfg.Element.Shape, cfg.Element.Size)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid structuring element configuration")
	}

	generator := seeds.NewGenerator(&seeds.Params{
		GaussianSigma:           cfg.Seeds.GaussianSigma,
		MinDistance:             cfg.Seeds.MinDistance,
		ThresholdRel:            cfg.Seeds.ThresholdRel,
		ExcludeBorder:           cfg.Seeds.ExcludeBorder,
		MaxSeeds:                cfg.Seeds.MaxSeeds,
		Element:                 element,
		NumCores:                cfg.Processing.NumCores,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
		Verbose:                 cfg.Output.Verbose,
	})

	startTime := time.Now()
	mask, err := generator.Generate(labels.Field())
	if err != nil {
		log.Fatal().Err(err).Msg("Seed generation failed")
	}

	if err := visualization.NewMaskViewer(mask).SavePNG(*outputPath); err != nil {
		log.Fatal().Err(err).Str("path", *outputPath).Msg("Failed to save seed mask")
	}

	metrics := generator.GetMetrics()
	log.Info().
		Int("seeds", metrics.SeedCount).
		Int("seedPixels", mask.CountTrue()).
		Float64("maxInternalDistance", metrics.MaxInternalDistance).
		Float64("meanPeakValue", metrics.MeanPeakValue).
		Float64("peakValueStdDev", metrics.PeakValueStdDev).
		Float64("foregroundFraction", metrics.ForegroundFraction).
		Dur("elapsed", time.Since(startTime)).
		Str("output", *outputPath).
		Msg("Seed generation completed")

	if cfg.Output.SaveIntermediaryResults {
		log.Info().Str("dir", cfg.Output.IntermediaryDir).Msg("Intermediary results saved")
	}
}

// loadLabelField decodes an image file into a label field
func loadLabelField(path string) (*models.LabelField, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return models.FromImage(img, path), nil
}
