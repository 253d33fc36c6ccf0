package main

import (
	"context"
	diffimage "design-diff/internal/diff/image"
	difftext "design-diff/internal/diff/text"
	"design-diff/internal/storage"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
)

type DiffOutput struct {
	DiffPath       string  `json:"diffPath,omitempty"`
	ChangedPixels  int64   `json:"changedPixels"`
	ChangedPercent float64 `json:"changedPercent"`
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	}

	return defaultValue
}

func main() {
	var directory string
	var format string
	var resizePolicy string
	var noDiff bool
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&format, "format", envOrDefaultValue("FORMAT", "pixel"), "Diff format (pixel or structure)")
	flag.StringVar(&resizePolicy, "resize-policy", envOrDefaultValue("RESIZE_POLICY", string(diffimage.ResizeCandidate)), "What to do with differently sized candidates (resize or strict)")
	flag.BoolVar(&noDiff, "no-diff", envOrDefaultValue("NO_DIFF", false), "Only count changed pixels")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("reference, candidate not specified")
	}

	ctx := context.Background()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	reference, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Failed to read reference: %v", err)
	}
	candidate, err := os.ReadFile(args[1])
	if err != nil {
		log.Fatalf("Failed to read candidate: %v", err)
	}

	var output DiffOutput
	switch format {
	case "pixel":
		policy, err := diffimage.ParseResizePolicy(resizePolicy)
		if err != nil {
			log.Fatalf("Invalid resize policy: %v", err)
		}
		config := diffimage.DefaultConfig()
		config.Policy = policy

		result, err := diffimage.NewPixelDiff(config).Compare(reference, candidate, !noDiff)
		if err != nil {
			log.Fatalf("Failed to compare images: %v", err)
		}

		if len(result.DiffPNG) > 0 {
			output.DiffPath, err = s.Put(ctx, storage.ContentKey("diff", result.DiffPNG), result.DiffPNG)
			if err != nil {
				log.Fatalf("Failed to save diff image: %v", err)
			}
		}
		output.ChangedPixels = result.ChangedPixelCount
		output.ChangedPercent = result.ChangedPercent
	case "structure":
		result, err := difftext.NewStructureDiff().Calculate(reference, candidate)
		if err != nil {
			log.Fatalf("Failed to calculate structure diff: %v", err)
		}

		output.DiffPath, err = s.Put(ctx, "diff/structure.txt", result.Diff)
		if err != nil {
			log.Fatalf("Failed to save structure diff: %v", err)
		}
		output.ChangedPercent = result.DiffAmount * 100
	default:
		log.Fatalf("Unknown diff format: %s", format)
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
