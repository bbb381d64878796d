package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coolbeans/regchunk/pkg/mcpserver"
	"github.com/coolbeans/regchunk/pkg/pattern"
	"github.com/coolbeans/regchunk/pkg/metrics"
	"github.com/coolbeans/regchunk/pkg/pipeline"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chunking and search as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout with the tools
chunk_text, search_chunks, list_documents and, when an OpenAI API key is
configured, ask.

With --metrics-addr (or metrics.addr) Prometheus metrics for chunking
runs are served at /metrics on that address.

Example:
  regchunk serve --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			a, err := loadApp()
			if err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			ctx := cmd.Context()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			if a.cfg.Patterns.Watch && a.cfg.Patterns.Dir != "" {
				reg.SetOnChange(func(event string, _ *pattern.Table) {
					a.logger.Debug("pattern tables changed", "event", event, "tables", reg.Count())
				})
				if err := reg.Watch(); err != nil {
					return err
				}
				defer reg.StopWatch()
			}

			collector := metrics.NewCollector(a.cfg.Metrics.Namespace, nil)
			p := a.pipeline(reg, pipeline.WithObserver(collector))

			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()

			embedder, err := a.embedder()
			if err != nil {
				return err
			}

			cfg := mcpserver.Config{
				Version:  version,
				Pipeline: p,
				Index:    index,
				Embedder: embedder,
			}
			if answerer := a.answerer(embedder, index); answerer != nil {
				cfg.Asker = answerer
			}

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metricsMux(collector),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					a.logger.Info("serving metrics", "addr", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			a.logger.Info("starting MCP server", "version", version, "ask", cfg.Asker != nil)
			err = mcpserver.Serve(ctx, mcpserver.NewServer(cfg), os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (default from config; empty disables)")

	return cmd
}

func metricsMux(collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
