package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge-cli/internal/config"
	"github.com/leadforge/leadforge-cli/internal/demo"
	"github.com/leadforge/leadforge-cli/internal/normalize"
	"github.com/leadforge/leadforge-cli/internal/pipeline"
	"github.com/leadforge/leadforge-cli/internal/store"
	"github.com/leadforge/leadforge-cli/internal/validate"
	"github.com/leadforge/leadforge-cli/pkg/serpapi"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadforge",
	Short: "Local business lead discovery and qualification",
	Long:  "Finds local businesses without websites via Google Maps, scores them as leads, generates demo websites, and tracks outreach.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects the configured database backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// newPipeline assembles a discovery pipeline on top of the given store.
func newPipeline(st store.Store, opts ...pipeline.Option) *pipeline.Pipeline {
	client := serpapi.NewClient(cfg.SerpAPI.Key, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
	norm := normalize.New(cfg.Search.PhoneRegion)
	validator := validate.New(cfg.Thresholds())
	return pipeline.New(st, client, norm, validator, opts...)
}

// newDemoGenerator builds the demo generator from config, loading custom
// template rules when configured.
func newDemoGenerator() (*demo.Generator, error) {
	var opts []demo.Option
	if cfg.Demo.RulesFile != "" {
		rules, err := demo.LoadRules(cfg.Demo.RulesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, demo.WithRules(rules))
	}
	return demo.New(cfg.Demo.OutputDir, opts...)
}

// cmdReporter routes pipeline progress lines to a command's stdout.
type cmdReporter struct {
	cmd *cobra.Command
}

func (r cmdReporter) Printf(format string, args ...any) {
	fmt.Fprintf(r.cmd.OutOrStdout(), format+"\n", args...)
}
