package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/quaestio/internal/embedding"
	"github.com/ppiankov/quaestio/internal/golden"
)

var goldenCmd = &cobra.Command{
	Use:   "golden",
	Short: "Manage validated answers",
	Long: `Manage the store of validated (curated) answers.

Each import publishes changed answers under a new golden epoch, which
invalidates cached responses generated before the change.`,
}

var goldenImportCmd = &cobra.Command{
	Use:   "import <answers.yaml>",
	Short: "Import validated answers from YAML",
	Long: `Import reads a YAML file with an "answers" list (id, question, answer,
citations, tags, updated_at) and publishes every new or changed answer.

Example:
  quaestio golden import risposte.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGoldenImport,
}

var goldenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show answer count and current golden epoch",
	Args:  cobra.NoArgs,
	RunE:  runGoldenStatus,
}

func init() {
	rootCmd.AddCommand(goldenCmd)
	goldenCmd.AddCommand(goldenImportCmd)
	goldenCmd.AddCommand(goldenStatusCmd)
}

func openGoldenStore() (*golden.SQLiteStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Golden.DBPath == "" {
		return nil, nil, fmt.Errorf("golden.db_path is not configured")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	engine, err := embedding.NewEngine(cfg.Golden.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding engine: %w", err)
	}

	store, err := golden.Open(cfg.Golden.DBPath, engine, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		_ = store.Close()
		_ = logger.Sync()
	}, nil
}

func runGoldenImport(cmd *cobra.Command, args []string) error {
	answers, err := golden.LoadAnswers(args[0])
	if err != nil {
		return err
	}

	store, closeStore, err := openGoldenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	stats, err := golden.Import(ctx, store, answers)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	epoch, err := store.Epoch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Imported %d answers (%d published, %d unchanged), golden epoch %d\n",
		stats.Total, stats.Published, stats.Unchanged, epoch)
	return nil
}

func runGoldenStatus(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openGoldenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	epoch, err := store.Epoch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Answers: %d\nEpoch:   %d\n", n, epoch)
	return nil
}
