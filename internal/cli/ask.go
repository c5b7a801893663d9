package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/model"
	"github.com/ppiankov/quaestio/internal/pipeline"
)

var (
	askDocs    []string
	askJSON    bool
	askTimeout time.Duration
	noCache    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Long: `Ask resolves one question through the full pipeline: validated answers,
response cache, knowledge-base retrieval and routed generation.

Example:
  quaestio ask "Qual è l'aliquota IVA ordinaria?"
  quaestio ask "Calcola l'IVA su questa fattura" --doc fattura.txt
  quaestio ask "Scadenza F24 di giugno" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringSliceVar(&askDocs, "doc", nil, "attach a text or HTML document (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "overall request timeout")
	askCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docs, err := readDocuments(askDocs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	sys, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = sys.Close() }()

	resp, err := sys.Resolver.Resolve(ctx, model.Request{
		Query:     strings.Join(args, " "),
		Documents: docs,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errs.KindOf(err), err)
	}

	if askJSON {
		return printJSON(resp)
	}
	printResponse(resp)
	return nil
}

func readDocuments(paths []string) ([]model.Document, error) {
	docs := make([]model.Document, 0, len(paths))
	for _, p := range paths {
		body, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		docs = append(docs, extract.NewDocument(filepath.Base(p), body))
	}
	return docs, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResponse(resp *model.Response) {
	fmt.Println(resp.Text)

	if len(resp.Citations) > 0 {
		fmt.Println()
		fmt.Println("Fonti:")
		for _, c := range resp.Citations {
			fmt.Printf("  - %s\n", c)
		}
	}

	if !verbose {
		return
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  Source:     %s\n", resp.Source)
	fmt.Fprintf(os.Stderr, "  Signature:  %s\n", resp.Signature.Short())
	fmt.Fprintf(os.Stderr, "  Match:      %s (%.2f)\n", resp.Match.Tier, resp.Match.Confidence)
	if resp.Delta != nil {
		fmt.Fprintf(os.Stderr, "  Delta:      %s\n", resp.Delta.Reason)
	}
	if resp.Classification != nil {
		fmt.Fprintf(os.Stderr, "  Class:      %s/%s (%.2f, %s)\n", resp.Classification.Domain, resp.Classification.Action, resp.Classification.Confidence, resp.Classification.Method)
	}
	if resp.Routing != nil {
		fmt.Fprintf(os.Stderr, "  Route:      %s -> %s (est. %.5f, max %.5f)\n", resp.Routing.Strategy, resp.Routing.Selected.ID, resp.Routing.EstimatedCost, resp.Routing.MaxCost)
	}
	if resp.Provider != "" {
		fmt.Fprintf(os.Stderr, "  Provider:   %s/%s, %d attempt(s), cost %.5f\n", resp.Provider, resp.Model, len(resp.Attempts), resp.Cost)
	}
	fmt.Fprintf(os.Stderr, "  Epochs:     %s\n", resp.Epochs)
}
