// Command wisckv-server runs the TCP frontend over an embedded LSM
// engine, configured from a YAML file (see internal/config).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lsm "github.com/kvforge/wisckv"
	"github.com/kvforge/wisckv/internal/config"
	"github.com/kvforge/wisckv/internal/logging"
	"github.com/kvforge/wisckv/internal/server"
)

func main() {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "wisckv-server",
		Short: "Run the wisckv key/value server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, debug)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "wisckv.yaml", "path to the YAML config file")
	root.Flags().BoolVar(&debug, "debug", false, "enable development logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	logger, err := logging.New(debug)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	engine, err := lsm.Open(cfg.DataDir, lsm.Options{
		WALDir:             cfg.WALDir,
		CheckpointInterval: 30 * time.Second,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("engine open: %w", err)
	}
	defer engine.Close()

	if len(cfg.PeerAddrs) > 0 {
		logger.Warn("peer_addrs configured but replication is not implemented in this revision",
			zap.Strings("peers", cfg.PeerAddrs))
	}

	srv := server.New(cfg.Addr, engine, logger)
	return srv.ListenAndServe()
}
