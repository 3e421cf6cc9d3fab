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

	functions.HTTP("HandleChat", handleChat)
}

// main is required by the Go Functions Framework.
func main() {}

func handleChat(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		rt, cfg, err := services.NewRuntimeFromEnv(context.Background())
		if err != nil {
			initErr = err
			return
		}
		logLevel.Set(cfg.SlogLevel())
		handler = api.NewHandler(rt).ChatRoutes()
	})
	if initErr != nil {
		slog.Error("CRITICAL: chat initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
