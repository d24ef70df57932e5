package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/cloudexport"
	"tally/internal/storage"
	"tally/internal/worker"
)

// tally-worker runs scheduled exports standalone, against the same
// store as the server. Useful when the server runs with a long
// schedule interval or not at all.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting tally-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backendResult := cli.InitBackend(logger, cfg)
	kv := backendResult.Store

	hubOpts := []cloudexport.Option{
		cloudexport.WithFailureRate(cfg.ExportFailureRate),
		cloudexport.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))),
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			hubOpts = append(hubOpts, cloudexport.WithEventPublisher(amqpClient))
		}
	}

	hub := cloudexport.NewService(kv, hubOpts...)
	scheduleWorker := worker.NewScheduleWorker(storage.NewExpenseGateway(kv), hub)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if backendResult.Cleanup != nil {
			if err := backendResult.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	// The worker also drains the export-event queue, writing an audit
	// line per event so completed exports are visible in one log even
	// when the server published them.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeExportEvents(ctx, func(msg *amqp.ExportEventMessage) error {
				logger.Info("Export event",
					"export_id", msg.ExportID,
					"template", msg.Template,
					"destination", msg.Destination,
					"status", msg.Status,
					"record_count", msg.RecordCount)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Export event consumer stopped", "error", err)
			}
		}()
	}

	if err := scheduleWorker.Run(ctx, cfg.ScheduleInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
}
