package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var logLevel = new(slog.LevelVar)

func init() {
	// A .env file is optional; the environment always wins.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
