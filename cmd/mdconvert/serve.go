// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdconvert/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversions over HTTP",
	Long: `Serve exposes the converter over HTTP:

  GET  /healthz           liveness
  GET  /v1/capabilities   capability flags, converters, advisories
  POST /v1/convert        raw bytes (hints in ?ext=, ?mime=, ?url=) or
                          a JSON body {"url": "https://..."}`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Int64("max-body", 256<<20, "maximum request body in bytes")
	serveCmd.Flags().Duration("timeout", 0, "per-request timeout (default 10m)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	maxBody, _ := cmd.Flags().GetInt64("max-body")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	srv := server.New(a.engine, a.caps,
		server.WithMaxBody(maxBody),
		server.WithTimeout(timeout),
		server.WithLogger(a.logger),
	)
	return srv.ListenAndServe(ctx, addr)
}
