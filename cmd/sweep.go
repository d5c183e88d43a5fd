package cmd

import (
	"context"
	"fmt"
	"os"
	"time"
)

// RunSweep removes every managed ACL matching the configured prefix and
// exits. Useful to clean up after the daemon was stopped for good.
func RunSweep(configFile string, dryRun bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, err := store.Supports(ctx)
	if err != nil {
		return fmt.Errorf("probing ACL capability: %w", err)
	}
	if !ok {
		return fmt.Errorf("platform does not support IPv6 ACLs")
	}

	if dryRun {
		logger.Info("dry-run: would sweep ACLs", "prefix", cfg.ACL.Prefix)
		return nil
	}

	removed, err := store.Sweep(ctx, cfg.ACL.Prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "removed %d ACLs matching %s_*\n", removed, cfg.ACL.Prefix)
	return nil
}
