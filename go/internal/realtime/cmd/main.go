package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/config"
	"github.com/mcdev12/bingo/go/internal/realtime/bridge"
	"github.com/mcdev12/bingo/go/internal/realtime/client"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
	"github.com/mcdev12/bingo/go/internal/statusapi"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(getEnv("BINGO_CONFIG", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logging
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	log.Info().
		Str("url", cfg.Server.URL).
		Str("player_id", cfg.Identity.PlayerID).
		Str("status_addr", cfg.Status.Addr).
		Bool("bridge", cfg.Bridge.Enabled).
		Msg("starting bingo client")

	// Optional NATS bridge to an out-of-process UI
	var (
		nc        *nats.Conn
		publisher *bridge.Publisher
		collab    effects.Collaborators
	)
	if cfg.Bridge.Enabled {
		nc, err = bridge.Connect(cfg.NATS())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()

		publisher = bridge.NewPublisher(nc, cfg.Bridge.SubjectPrefix)
		collab = publisher.Collaborators()
	}

	rc := client.New(cfg.Client(), collab, nil)

	if publisher != nil {
		forwardLifecycle(rc, publisher)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := rc.Run(ctx); err != nil {
			log.Error().Err(err).Msg("realtime client failed")
		}
	}()

	if nc != nil {
		sub, err := bridge.SubscribeIntents(nc, cfg.Bridge.IntentSubject, func(intent protocol.Intent) {
			sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
			defer sendCancel()

			delivery, err := rc.Send(sendCtx, intent)
			if err != nil {
				log.Error().Err(err).Str("kind", string(intent.Kind)).Msg("failed to submit bridged intent")
				return
			}
			log.Debug().
				Str("kind", string(intent.Kind)).
				Str("delivery", delivery.String()).
				Msg("bridged intent submitted")
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to intents")
		}
		defer sub.Unsubscribe()
	}

	if err := rc.Open(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to open connection")
	}

	server := statusapi.NewServer(cfg.Status.Addr, cfg.Status.AllowedOrigins, rc)

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("status server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("status server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}

	// Stopping the loop closes the websocket with a normal close frame
	cancel()
	select {
	case <-rc.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("realtime client did not stop in time")
	}

	log.Info().Msg("bingo client shutdown complete")
}

// forwardLifecycle publishes every connection lifecycle event on the bridge
func forwardLifecycle(rc *client.Client, publisher *bridge.Publisher) {
	names := []client.EventName{
		client.EventConnecting,
		client.EventConnect,
		client.EventDisconnect,
		client.EventError,
		client.EventReconnecting,
		client.EventUnreachable,
	}
	for _, name := range names {
		rc.On(name, func(ev client.Event) {
			msg := bridge.LifecycleMessage{
				Event:   string(ev.Name),
				State:   ev.State.String(),
				Attempt: ev.Attempt,
				DelayMS: ev.Delay.Milliseconds(),
			}
			if ev.Err != nil {
				msg.Error = ev.Err.Error()
			}
			publisher.PublishLifecycle(msg)
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
