package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/synaptica-ai/prelude-parser/pkg/common/config"
	"github.com/synaptica-ai/prelude-parser/pkg/common/kafka"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/common/models"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/service"
)

func main() {
	logger.Init()
	cfg := config.Load()

	svc, cleanup, err := service.Bootstrap(cfg, "flatfile-worker")
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialise flatfile worker")
	}
	defer cleanup()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaRequestedTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.WithField("topic", cfg.KafkaRequestedTopic).Info("Flatfile worker consuming")
	if err := consumer.Consume(ctx, handle(svc)); err != nil && !errors.Is(err, context.Canceled) {
		cleanup()
		consumer.Close()
		// Exit non-zero so the supervisor restarts the worker at the failed offset.
		logger.Log.WithError(err).Fatal("flatfile worker stopped")
	}
	logger.Log.Info("Flatfile worker stopped")
}

func handle(svc *service.Service) kafka.EventHandler {
	return func(ctx context.Context, event models.Event) error {
		if event.Type != "" && event.Type != models.EventFlatfileRequested {
			return nil
		}
		res, err := svc.ParseRequest(ctx, models.ParseRequestFromEvent(event))
		if err != nil {
			// Bad exports do not get better by retrying.
			if errors.Is(err, flatfile.ErrNotFound) || errors.Is(err, flatfile.ErrInvalidFileType) || errors.Is(err, flatfile.ErrParsing) ||
				errors.Is(err, service.ErrInvalidRequest) {
				return fmt.Errorf("%w: %v", kafka.ErrPermanent, err)
			}
			return err
		}
		logger.Log.WithFields(map[string]interface{}{
			"event_id":  event.ID,
			"export_id": res.Summary.ID,
			"records":   res.Summary.Records,
		}).Info("parse request handled")
		return nil
	}
}
