// Package main provides pickr, a command line companion to the BookPickr
// server: direct catalog lookups and a scripted picking session.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/config"
	"github.com/okian/bookpickr/pkg/logger"
)

// errNotFound makes a lookup with no answer exit non-zero.
var errNotFound = errors.New("not found")

type rootFlags struct {
	logLevel   string
	catalogURL string
	coversURL  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "pickr",
		Short:         "BookPickr command line tools",
		Long:          "pickr queries the Open Library catalog the way the BookPickr server does and can drive a running server through a scripted picking session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return logger.SetLevelString(flags.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.catalogURL, "catalog-url", "", "Open Library API root (overrides BOOKPICKR_CATALOG_BASE_URL)")
	root.PersistentFlags().StringVar(&flags.coversURL, "covers-url", "", "Open Library covers root (overrides BOOKPICKR_COVERS_BASE_URL)")

	root.AddCommand(newLookupCmd(flags), newSimulateCmd())
	return root
}

// catalogClient builds a catalog client from env/file config plus flag
// overrides.
func (f *rootFlags) catalogClient(cmd *cobra.Command) (*catalog.Client, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	if f.catalogURL != "" {
		cfg.CatalogBaseURL = f.catalogURL
	}
	if f.coversURL != "" {
		cfg.CoversBaseURL = f.coversURL
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return catalog.New(catalog.FromConfig(cfg)...), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
