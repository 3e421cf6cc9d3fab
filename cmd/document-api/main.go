package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/documentqaflow/internal/api"
	"github.com/Lllllllleong/documentqaflow/internal/services"
)

var (
	handler  http.Handler
	once     sync.Once
	initErr  error
	logLevel = new(slog.LevelVar)
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Serves /upload-url, /list and /summary.
	functions.HTTP("HandleDocumentAPI", handleDocumentAPI)
}

// main is required by the Go Functions Framework.
func main() {}

func handleDocumentAPI(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		rt, cfg, err := services.NewRuntimeFromEnv(context.Background())
		if err != nil {
			initErr = err
			return
		}
		logLevel.Set(cfg.SlogLevel())
		handler = api.NewHandler(rt).DocumentRoutes()
	})
	if initErr != nil {
		slog.Error("CRITICAL: document API initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
