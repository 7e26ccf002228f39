// EchoRelay - game server registration and matchmaking relay.
//
// The relay accepts websocket connections from game servers, registers
// them, probes their advertised endpoints, brokers lobby and player
// sessions against per-gametype capacity limits, exposes a REST API for
// monitoring and control, and publishes real-time telemetry via MQTT.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/api"
	"github.com/Xenomega/EchoRelay-sub000/internal/cli"
	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
	"github.com/Xenomega/EchoRelay-sub000/internal/storage"
	"github.com/Xenomega/EchoRelay-sub000/internal/telemetry"
	"github.com/Xenomega/EchoRelay-sub000/internal/util"
)

const (
	AppName    = "EchoRelay"
	AppVersion = "1.0.0"
	Banner     = `
  ______     _           _____      _
 |  ____|   | |         |  __ \    | |
 | |__   ___| |__   ___ | |__) |___| | __ _ _   _
 |  __| / __| '_ \ / _ \|  _  // _ \ |/ _' | | | |
 | |___| (__| | | | (_) | | \ \  __/ | (_| | |_| |
 |______\___|_| |_|\___/|_|  \_\___|_|\__,_|\__, |
                                             __/ |
                                            |___/  v%s
 Game Server Registration & Matchmaking Relay
`
)

func main() {
	// Print banner
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (will be reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting EchoRelay")

	// Load configuration
	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Re-initialize logger with config-based settings
	appData := cfg.GetApplicationData()
	logCfg := util.LogConfig{
		Level:      appData.Logging.Level,
		Directory:  appData.Logging.Directory,
		MaxBackups: 5,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	// Validate configuration
	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}

		if cfg.IsFirstRun() {
			log.Info().Msg("first run detected, launching setup wizard")
			if err := config.RunSetupWizard(cfg); err != nil {
				log.Fatal().Err(err).Msg("setup wizard failed")
			}
		} else {
			log.Fatal().Msg("configuration validation failed, please fix the errors above")
		}
	}

	// Log system info
	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	// Resolve the public address game servers are advertised under. Game
	// servers behind NAT register with private addresses; clients need the
	// relay's public address in their place.
	publicAddr := resolvePublicAddress(cfg)

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize core components
	eventBus := events.NewEventBus()

	relayData := cfg.GetRelayData()

	// Admission policy: stock symbol names plus per-gametype limits from config
	symbols := storage.DefaultSymbolCache()
	policy := serverdb.NewLimitsPolicy(symbols)
	for name, limits := range relayData.GameTypeLimits {
		playerLimits, err := serverdb.NewPlayerLimits(limits.TotalPlayerLimit, limits.FixedActiveGameParticipantTarget)
		if err != nil {
			log.Fatal().Err(err).Str("gametype", name).Msg("invalid gametype limits in config")
		}
		policy.Set(name, playerLimits)
	}

	// Registry, endpoint prober, and protocol service
	registry := serverdb.NewRegistry(eventBus)
	prober := serverdb.NewProber(time.Duration(relayData.ServerDB.ProbeTimeoutSec) * time.Second)

	svc := serverdb.NewService(registry, policy, prober, eventBus, serverdb.ServiceOptions{
		APIKey:            relayData.ServerDB.APIKey,
		ValidateEndpoints: relayData.ServerDB.ValidateEndpoints,
		PublicAddress:     publicAddr,
		OperationTimeout:  time.Duration(relayData.ServerDB.OperationTimeoutSec) * time.Second,
	})

	// Initialize REST API + websocket endpoint
	apiServer := api.NewServer(cfg, eventBus, svc)

	// Initialize MQTT telemetry
	var mqttHandler *telemetry.MQTTHandler
	if appData.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	// Initialize CLI
	cliHandler := cli.NewCLI(cfg, eventBus, registry)

	// ---------------------------------------------------------------
	// Launch all concurrent tasks
	// ---------------------------------------------------------------
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Task 1: API server (REST + /serverdb websocket endpoint)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", relayData.APIPort).Msg("starting API server")
		if err := startWithRetry(ctx, "API server", apiServer.Start, 15); err != nil {
			log.Error().Err(err).Msg("API server failed after retries")
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Task 2: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 3: Interactive CLI
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive CLI")
		cliHandler.Start(ctx)
	}()

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	shutdownCh := make(chan struct{}, 1)
	eventBus.Subscribe(events.EventShutdown, "main.shutdown", func(ctx context.Context, event events.Event) error {
		select {
		case shutdownCh <- struct{}{}:
		default:
		}
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Cancel the root context to signal all goroutines
	cancel()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	// Stop the event bus last
	eventBus.Stop()

	log.Info().Msg("EchoRelay stopped")
}

// resolvePublicAddress determines the address advertised in place of a game
// server's private registration address. A configured address wins; without
// one, the relay's own outbound interface address is used when it is public.
func resolvePublicAddress(cfg *config.Config) netip.Addr {
	relayData := cfg.GetRelayData()

	if relayData.PublicAddress != "" {
		addr, err := netip.ParseAddr(relayData.PublicAddress)
		if err != nil {
			log.Fatal().Err(err).Str("address", relayData.PublicAddress).Msg("invalid relay_public_address in config")
		}
		if addr.IsPrivate() || addr.IsLoopback() {
			log.Warn().
				Str("address", relayData.PublicAddress).
				Msg("relay_public_address is private — game servers behind NAT will be advertised with an unreachable address")
		}
		log.Info().Str("address", addr.String()).Msg("using configured public address")
		return addr
	}

	detected, err := util.GetPublicIP()
	if err != nil {
		log.Warn().Err(err).Msg("relay_public_address is empty and detection failed — private game server addresses will pass through unsubstituted")
		return netip.Addr{}
	}

	addr, err := netip.ParseAddr(detected)
	if err != nil {
		log.Warn().Str("address", detected).Msg("detected address did not parse, ignoring")
		return netip.Addr{}
	}

	if addr.IsPrivate() || addr.IsLoopback() {
		log.Warn().
			Str("address", detected).
			Msg("detected address is private — set relay_public_address so game servers behind NAT are reachable")
		return netip.Addr{}
	}

	log.Info().Str("address", addr.String()).Msg("auto-detected public address (relay_public_address was empty)")
	relayData.PublicAddress = addr.String()
	cfg.SetRelayData(relayData)
	if err := cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save auto-detected public address to config")
	}
	return addr
}

// startWithRetry attempts to start a listener/server with retry on bind
// errors. Uses a fixed 3-second interval between retries, giving the OS
// time to release sockets after a previous instance exits.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			time.Sleep(3 * time.Second)
		}
	}
	return lastErr
}
