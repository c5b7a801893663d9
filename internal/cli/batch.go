package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/model"
	"github.com/ppiankov/quaestio/internal/pipeline"
	"github.com/ppiankov/quaestio/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer many questions from a file in parallel",
	Long: `Batch reads one question per line (blank lines and # comments are
skipped) and resolves them concurrently. Repeated questions share cached
answers.

Example:
  quaestio batch domande.txt
  quaestio batch domande.txt --concurrency 8 --output risposte.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write one JSON response per line to this file")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
}

// batchRecord is one line of the JSONL output
type batchRecord struct {
	Query    string          `json:"query"`
	Response *model.Response `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
	Kind     errs.Kind       `json:"kind,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	sys, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = sys.Close() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(sys.Resolver, cfg.Concurrency, logger)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var out *json.Encoder
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = json.NewEncoder(f)
	}

	for _, r := range results {
		rec := batchRecord{Query: r.Query, Response: r.Response}
		if r.Error != nil {
			rec.Error = r.Error.Error()
			rec.Kind = errs.KindOf(r.Error)
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Query, r.Error)
		} else {
			fmt.Fprintf(os.Stderr, "✓ [%s] %s\n", r.Response.Source, r.Query)
		}
		if out != nil {
			if err := out.Encode(rec); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}

	summary := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d questions\n", summary.Total)
	for _, src := range []model.ResponseSource{model.FromGolden, model.FromCache, model.FromGenerated} {
		fmt.Fprintf(os.Stderr, "  %-10s  %d\n", src+":", summary.BySource[src])
	}
	for kind, n := range summary.ByError {
		fmt.Fprintf(os.Stderr, "  %-10s  %d\n", kind+":", n)
	}
	fmt.Fprintf(os.Stderr, "  Cost:       %.5f\n", summary.TotalCost)
	if batchOutput != "" {
		fmt.Fprintf(os.Stderr, "  Output:     %s\n", batchOutput)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
