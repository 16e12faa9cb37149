// ABOUTME: Command-line runner for the clause labeling benchmark
// ABOUTME: Labels the fixture clauses with the rule or cascade labeler and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/benchmarks/labeling"
	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/config"
	"github.com/harper/redliner/internal/core"
	"github.com/joho/godotenv"
)

func main() {
	// Command-line flags
	useModel := flag.Bool("model", false, "Use the configured model behind the rule labeler")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	minAccuracy := flag.Float64("min-accuracy", 0, "Exit non-zero below this accuracy")
	verbose := flag.Bool("verbose", false, "Print every prediction")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	name := "rule"
	var labeler core.Labeler = core.NewRuleLabeler()
	if *useModel {
		client, err := app.NewModelClient(cfg)
		if err != nil {
			log.Fatal("failed to create model client", "err", err)
		}
		name = "cascade/" + cfg.Provider
		labeler = core.NewCascadeLabeler(labeler, core.NewModelLabeler(client), cfg.PipelineConfig().ModelLabelThreshold)
	}

	fmt.Println("========================================")
	fmt.Println("Redliner Labeling Benchmark")
	fmt.Println("========================================")
	fmt.Println()

	res, err := labeling.NewRunner(name, labeler, *verbose).Run(context.Background(), labeling.DefaultCases())
	if err != nil {
		log.Fatal("benchmark failed", "err", err)
	}

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	fmt.Printf("Labeler:  %s\n", res.Labeler)
	fmt.Printf("Accuracy: %.2f (%d/%d)\n\n", res.Accuracy, res.Correct, res.Total)
	for _, s := range res.Categories {
		fmt.Printf("  %-22s precision %.2f  recall %.2f  support %d\n", s.Category, s.Precision, s.Recall, s.Support)
	}
	for _, m := range res.Misses {
		fmt.Printf("\nMISS %s: want %s, got %s\n  %s\n", m.Case.ID, m.Case.Want, m.Got, m.Case.Text)
	}

	if err := labeling.ExportResults(res, *outputPath); err != nil {
		log.Fatal("failed to export results", "err", err)
	}
	fmt.Printf("\nResults written to %s\n", *outputPath)

	if res.Accuracy < *minAccuracy {
		os.Exit(1)
	}
}
