// Package cmd implements the sixfence subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/sixfence/internal/acl"
	"grimm.is/sixfence/internal/config"
	"grimm.is/sixfence/internal/controller"
	"grimm.is/sixfence/internal/events"
	"grimm.is/sixfence/internal/logging"
	"grimm.is/sixfence/internal/topology"
)

// RunDaemon loads the configuration and runs the controller until
// interrupted. With dryRun, ACL writes are logged instead of applied.
func RunDaemon(configFile string, dryRun, debug bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}
	logger := setupLogging(cfg)

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	if dryRun {
		store = acl.NewDryRunStore(store, logger.WithComponent("dryrun"))
		logger.Info("dry-run mode: ACL changes will be logged, not applied")
	}

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}

	pattern, err := topology.CompileSviPattern(cfg.SviPattern)
	if err != nil {
		return fmt.Errorf("svi_pattern: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, cfg.Metrics.Listen, logger)
	}

	c := controller.New(controller.Config{
		Prefix:  cfg.ACL.Prefix,
		Source:  source,
		Store:   store,
		Pattern: pattern,
		Logger:  logger.WithComponent("controller"),
	})

	if cfg.Debug {
		go traceEvents(ctx, c.Hub(), logger.WithComponent("trace"))
	}

	err = c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) *logging.Logger {
	level, _ := cfg.LogLevel()
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level: level,
		JSON:  cfg.Log != nil && cfg.Log.JSON,
	})
	logging.SetDefault(logger)
	return logger
}

// buildStore wires the configured ACL backend.
func buildStore(cfg *config.Config) (acl.Store, error) {
	switch cfg.ACL.Backend {
	case config.BackendEapi:
		client := acl.NewEapiClient(acl.EapiConfig{
			Endpoint:           cfg.Eapi.Endpoint,
			Username:           cfg.Eapi.Username,
			Password:           cfg.Eapi.Password,
			InsecureSkipVerify: cfg.Eapi.Insecure,
		})
		return acl.NewEapiStore(client), nil
	case config.BackendNft:
		return acl.NewNFTStore(cfg.ACL.Prefix)
	case config.BackendMemory:
		return acl.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown acl backend %q", cfg.ACL.Backend)
}

func buildSource(cfg *config.Config) (topology.Source, error) {
	switch cfg.Topology.Source {
	case "netlink":
		return topology.NewNetlinkSource(topology.NetlinkSourceConfig{
			SviPattern:   cfg.SviPattern,
			PollInterval: cfg.PollInterval(),
			Logger:       logging.WithComponent("topology"),
		})
	}
	return nil, fmt.Errorf("unknown topology source %q", cfg.Topology.Source)
}

// traceEvents narrates every controller decision on the debug log.
func traceEvents(ctx context.Context, hub *events.Hub, logger *logging.Logger) {
	ch := hub.Subscribe(256)
	defer hub.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			logger.Debug(string(e.Type), "source", e.Source, "data", e.Data)
		}
	}
}

func serveMetrics(ctx context.Context, listen string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
