package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// boundEnv lists settings that may come from the environment without
// appearing in a config file
var boundEnv = []string{
	"environment",
	"logging.level",
	"logging.json",
	"cache.dir",
	"cache.epoch_file",
	"kb.corpus_path",
	"golden.db_path",
	"golden.embedding.provider",
	"golden.embedding.api_key",
	"classifier.secondary_provider",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quaestio",
	Short: "Quaestio - answers to Italian tax, labour and company-law questions",
	Long: `Quaestio resolves professional questions on Italian tax, labour and
company law.

Validated answers are served directly when they match the question with high
confidence and no newer source contradicts them. Everything else is
generated from a bounded context of knowledge-base entries, question facts
and attached documents, routed to the provider that fits the question's
cost and quality profile, and cached until the underlying sources change.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quaestio %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.quaestio/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".quaestio"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps QUAESTIO_* variables onto config keys, e.g.
// QUAESTIO_CACHE_DIR onto cache.dir
func bindEnv() {
	viper.SetEnvPrefix("QUAESTIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range boundEnv {
		_ = viper.BindEnv(key)
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.JSON)
}
