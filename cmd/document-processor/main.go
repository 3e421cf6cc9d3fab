package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/documentqaflow/internal/events"
	"github.com/Lllllllleong/documentqaflow/internal/services"
)

var (
	instance *services.Runtime
	once     sync.Once
	initErr  error
	logLevel = new(slog.LevelVar)
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Triggered by google.cloud.storage.object.v1.finalized on the upload bucket.
	functions.CloudEvent("ProcessDocument", processDocument)
}

// main is required by the Go Functions Framework.
func main() {}

func processDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		rt, cfg, err := services.NewRuntimeFromEnv(context.Background())
		if err != nil {
			initErr = err
			return
		}
		logLevel.Set(cfg.SlogLevel())
		instance = rt
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	obj, err := events.ParseStorageEvent(e)
	if err != nil {
		// A malformed event will never succeed; returning nil stops redelivery.
		slog.Error("Failed to decode storage event", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return nil
	}

	// Only a failed record write is returned, so the trigger can redeliver.
	_, err = instance.Processor.Process(ctx, obj.Bucket, obj.Name)
	return err
}
