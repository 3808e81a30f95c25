package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"

	"chat-relay/moderation"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the relay lifecycle.
// Returning the error to main instead of exiting directly keeps the
// defers running and the initialization testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Optional moderation
	var moderator *moderation.Moderator
	words := lo.Filter(strings.Split(config.CensoredWords, ","), func(w string, _ int) bool {
		return strings.TrimSpace(w) != ""
	})
	if len(words) > 0 {
		replacement, err := CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err = moderation.NewModerator(words, replacement, log)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		log.Info("Moderation enabled", "words", len(words))
	}

	// 3. Room, relay and health monitoring under supervision
	room := runtime.NewRoom(log)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	relay := server.NewChatServer(log, address, room, moderator)
	health := workers.NewHealthWorker(log, room, config.MetricInterval)
	sup := workers.NewSupervisor(log, config.RestartInterval)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Blocks until every supervised worker has finished
	sup.Add(relay, health).Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
