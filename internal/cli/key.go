package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/quaestio/internal/model"
	"github.com/ppiankov/quaestio/internal/pipeline"
)

var keyDocs []string

var keyCmd = &cobra.Command{
	Use:   "key <question>",
	Short: "Show the facts, signature and cache key of a question",
	Long: `Key prints what the pipeline derives from a question before any lookup:
the canonical facts, the query signature, the current epochs and the
response cache key. Equivalent phrasings print the same key.

Example:
  quaestio key "IVA 22% su 1.000,00€"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.Flags().StringSliceVar(&keyDocs, "doc", nil, "attach a document (repeatable)")
}

func runKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docs, err := readDocuments(keyDocs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sys, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = sys.Close() }()

	s, err := sys.Resolver.Key(ctx, model.Request{Query: strings.Join(args, " "), Documents: docs})
	if err != nil {
		return err
	}

	fmt.Println("Facts:")
	if len(s.Facts) == 0 {
		fmt.Println("  (none)")
	}
	for _, f := range s.Facts {
		fmt.Printf("  %-22s %s\n", f.Kind, f.Value)
	}
	fmt.Printf("Signature: %s\n", s.Signature)
	fmt.Printf("Epochs:    %s\n", s.Epochs)
	fmt.Printf("Key:       %s\n", s.CacheKey)
	return nil
}
