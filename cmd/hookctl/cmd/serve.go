// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/rpc"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the hook's state over JSON-RPC with metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		store, err := openStore(log)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		registry := prometheus.NewRegistry()
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return err
		}
		cfg := simulatorConfig()
		s, err := simulator.New(ctx, cfg, log, store, registry)
		if err != nil {
			return err
		}
		handler, err := rpc.NewHandler(s, log, rpc.WithDeriver(cfg.Deriver))
		if err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.Handle(rpc.Endpoint, handler)
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              viper.GetString(listenAddressKey),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("serving",
				zap.String("address", server.Addr),
				zap.String("endpoint", rpc.Endpoint),
			)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}
