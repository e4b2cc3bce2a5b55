// Netabase daemon: brings up a single node's swarm supervisor and keeps it
// alive until an operator signal arrives. The daemon itself never calls
// Put/Get — it exists only to run the DHT participant a local
// application or netabase-cli connects to in a future embedding, or to act
// as a standalone bootstrap/relay node.
//
// Usage:
//
//	netabased                  Run with defaults, writing a config if absent
//	netabased --config=...     Run with an explicit config file
//	netabased --help           Show help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/netabase/netabase"
	"github.com/netabase/netabase/config"
	klog "github.com/netabase/netabase/internal/log"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logs dir: %v\n", err)
			os.Exit(1)
		}
		logFile = logsDir + "/netabased.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("daemon")

	logger.Info().
		Str("protocol", cfg.Identity.ProtocolName).
		Strs("listen", cfg.Listen.Addrs).
		Str("dht_mode", cfg.DHT.Mode).
		Msg("Starting Netabase node")

	// ── 3. Bring up the store ────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := netabase.Start(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start node")
	}

	logger.Info().
		Str("peer_id", store.PeerID().String()).
		Strs("addrs", store.Addrs()).
		Msg("Node started successfully")

	// ── 4. Log lifecycle events as they arrive ───────────────────────────
	events, detach, err := store.Subscribe(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe to node events")
	}
	go logEvents(events, logger)

	// ── 5. Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	detach()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DHT.QueryTimeout)
	defer shutdownCancel()
	if err := store.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Shutdown reported an error")
	}
	logger.Info().Msg("Goodbye!")
}

// logEvents mirrors every broadcast event to the daemon log until events is
// closed (on detach) or the node terminates.
func logEvents(events <-chan netabase.Event, logger zerolog.Logger) {
	for evt := range events {
		switch {
		case evt.ListeningOn != nil:
			logger.Info().Str("addr", evt.ListeningOn.Addr).Msg("Listening")
		case evt.PeerUp != nil:
			logger.Info().Str("peer", evt.PeerUp.PeerID.String()).Msg("Peer connected")
		case evt.PeerDown != nil:
			logger.Info().Str("peer", evt.PeerDown.PeerID.String()).Msg("Peer disconnected")
		case evt.PeerDiscovered != nil:
			logger.Debug().Str("peer", evt.PeerDiscovered.PeerID.String()).Msg("Peer discovered")
		case evt.PeerExpired != nil:
			logger.Debug().Str("peer", evt.PeerExpired.PeerID.String()).Msg("Peer expired")
		case evt.DhtBootstrapped != nil:
			logger.Info().Msg("DHT bootstrap round completed")
		case evt.FatalError != nil:
			logger.Error().Str("reason", evt.FatalError.Reason).Msg("Node reported a fatal error")
			return
		case evt.Lagged != nil:
			logger.Warn().Uint64("missed", evt.Lagged.MissedCount).Msg("Daemon event subscriber lagged")
		}
	}
}
