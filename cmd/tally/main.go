package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/cloudexport"
	apphttp "tally/internal/http"
	"tally/internal/session"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendResult := cli.InitBackend(logger, cfg)
	kv := backendResult.Store

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := storage.NewExpenseRepository(storage.NewExpenseGateway(kv))
	coordinator := session.NewCoordinator(repo)
	coordinator.Start(ctx)

	hubOpts := []cloudexport.Option{
		cloudexport.WithFailureRate(cfg.ExportFailureRate),
		cloudexport.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))),
	}

	// Export event publishing is optional; the hub runs without it.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			hubOpts = append(hubOpts, cloudexport.WithEventPublisher(amqpClient))
			logger.Info("Initialized AMQP export event publisher",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	hub := cloudexport.NewService(kv, hubOpts...)
	srv := apphttp.NewServer(":"+cfg.Port, coordinator, hub)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	scheduleWorker := worker.NewScheduleWorker(storage.NewExpenseGateway(kv), hub)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "backend", cfg.DataBackend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := scheduleWorker.Run(gctx, cfg.ScheduleInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err := g.Wait()

	if amqpClient != nil {
		_ = amqpClient.Close()
	}
	if backendResult.Cleanup != nil {
		if cerr := backendResult.Cleanup(); cerr != nil {
			logger.Error("Backend cleanup error", "error", cerr)
		}
	}

	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
