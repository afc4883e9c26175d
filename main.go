// Copyright 2025 VRF Relay Worker Authors
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vrfrelay/worker/pkg/config"
	"github.com/vrfrelay/worker/pkg/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "vrf-worker",
		Short: "Relays VRF requests from the oracle chain to a VRFProvider contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file (required)")
	cmd.MarkPersistentFlagRequired("config")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := worker.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("construct worker: %w", err)
	}
	defer w.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	log.Info().Msg("vrf-worker starting")
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("worker run: %w", err)
	}
	log.Info().Msg("vrf-worker stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
