package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/studybuddy/internal/cli"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log := slogx.New(slogx.Config{
		Service: "studyai",
		Env:     os.Getenv("ENV"),
		Level:   level,
		Format:  "text",
		Output:  os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewApp(log).Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "studyai:", err)
		os.Exit(1)
	}
}
