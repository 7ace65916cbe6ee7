package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/covermd/dutyplanner/internal/app"
	"github.com/covermd/dutyplanner/internal/config"
	"github.com/covermd/dutyplanner/pkg/scheduler"
)

func main() {
	mode := flag.String("mode", "", "run mode: api, validate, or generate (overrides DUTYPLANNER_MODE)")
	inPath := flag.String("in", "", "input JSON file (required for validate/generate)")
	seed := flag.Int64("seed", 0, "RNG seed (generate mode only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	if *mode != "" {
		cfg.Mode = *mode
	}

	switch cfg.Mode {
	case "validate":
		os.Exit(runValidate(*inPath))
	case "generate":
		os.Exit(runGenerate(*inPath, *seed))
	default:
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := app.Run(ctx, cfg); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	}
}

// runValidate loads an input document and runs the preflight validators
// only, against a local file — no database or Redis required. Grounded
// in the original implementation's algorithm/main.py CLI entry point.
func runValidate(inPath string) int {
	input, err := loadInput(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	svc := scheduler.NewService()
	errs := svc.ValidateOnly(input)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		Errors []string `json:"errors"`
	}{Errors: errs})

	if len(errs) > 0 {
		return 1
	}
	return 0
}

// runGenerate runs the full scheduling pipeline against a local input
// file and prints the output document to stdout.
func runGenerate(inPath string, seed int64) int {
	input, err := loadInput(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	svc := scheduler.NewService()
	out, err := svc.Run(context.Background(), input, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding output: %v\n", err)
		return 1
	}
	return 0
}

func loadInput(path string) (scheduler.Input, error) {
	if path == "" {
		return scheduler.Input{}, fmt.Errorf("-in is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	var input scheduler.Input
	if err := json.NewDecoder(f).Decode(&input); err != nil {
		return scheduler.Input{}, fmt.Errorf("decoding input file: %w", err)
	}
	return input, nil
}
