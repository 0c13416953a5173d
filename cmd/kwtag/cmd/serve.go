package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kwtag/kwtag/internal/app"
	"github.com/kwtag/kwtag/internal/logging"
)

type serveOptions struct {
	addr  string
	watch bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation HTTP API",
		Long:  "Builds the configured vocabularies and serves POST /api/annotate, health, vocabulary and metrics endpoints until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	f.BoolVar(&opts.watch, "watch", false, "Reload when a keyword file changes (overrides watch)")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch = opts.watch
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "⚡ kwtag serving %d vocabularies at %s\n", len(a.Vocabularies()), a.WebServer.URL())

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Fprintln(out, "⚡ shutting down...")
	return a.Stop()
}
