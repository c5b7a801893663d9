package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/model"
)

var providersTimeout time.Duration

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Check that every configured provider route is reachable",
	Long: `Providers builds each route in routing.providers and probes it. Routes
whose client cannot be built (usually a missing API key) are reported
as not configured.

Example:
  quaestio providers --timeout 5s`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.Flags().DurationVar(&providersTimeout, "timeout", 10*time.Second, "timeout for each probe")
}

type providerStatus struct {
	Profile model.ProviderProfile
	State   string // ok, unreachable, not configured
}

// checkProviders probes the registry's providers in parallel. Results
// follow the order of profiles.
func checkProviders(ctx context.Context, profiles []model.ProviderProfile, reg llm.Registry, timeout time.Duration) []providerStatus {
	out := make([]providerStatus, len(profiles))
	g, gctx := errgroup.WithContext(ctx)

	for i, profile := range profiles {
		out[i].Profile = profile
		p, ok := reg[profile.ID]
		if !ok {
			out[i].State = "not configured"
			continue
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			if p.IsAvailable(pctx) {
				out[i].State = "ok"
			} else {
				out[i].State = "unreachable"
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Routing.Providers) == 0 {
		return fmt.Errorf("no providers configured under routing.providers")
	}

	reg, failures := llm.NewRegistry(cfg.Routing.Providers, cfg.Budget.OutputTokens)
	if verbose {
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  %v\n", f)
		}
	}

	statuses := checkProviders(context.Background(), cfg.Routing.Providers, reg, providersTimeout)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tMODEL\tSTATUS")
	down := 0
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Profile.ID, s.Profile.Provider, s.Profile.Model, s.State)
		if s.State != "ok" {
			down++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if down == len(statuses) {
		return fmt.Errorf("no provider is reachable")
	}
	return nil
}
