package walletd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/walletgui/walletd/wallet_interfaces/xmr"
)

var defaultConfig = &Config{
	WalletFile: "my.wallet",
	Logging: LoggingConfig{
		Level: "info",
	},
	Node: NodeConfig{
		Address: "http://127.0.0.1:18082/json_rpc",
	},
	Backup: BackupConfig{
		Retention: 10,
	},
	Notifications: NotificationConfig{
		FlushIntervalMS: 500,
	},
	Status: StatusConfig{
		RefreshSeconds: 60,
	},
}

// Run starts watch mode: live config reload plus periodic chain status
// logging against the configured node. nodePassword overrides the config
// value when the password was supplied interactively.
func Run(ctx context.Context, configPath, nodePassword string) error {
	if configPath == "" {
		configPath = "walletd.yml"
	}

	cfg, err := LoadOrCreateConfig(configPath, defaultConfig)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	InitLogger(cfg.Logging)
	slog.Info("config loaded", "path", configPath, "wallet_file", cfg.WalletFile)

	store := NewConfigStore(configPath, cfg)
	watcher, err := WatchConfigFile(configPath, store)
	if err != nil {
		slog.Error("config watcher failed to start", "path", configPath, "error", err)
		return err
	}
	defer watcher.Close()
	slog.Info("config watcher started", "path", configPath)

	if cfg.Node.Address == "" {
		return fmt.Errorf("node.address is required for watch mode")
	}
	password := cfg.Node.Password
	if nodePassword != "" {
		password = nodePassword
	}
	chain := xmr.NewNodeRPC(cfg.Node.Address, cfg.Node.Username, password)

	interval := time.Duration(cfg.Status.RefreshSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("watching chain status", "node", cfg.Node.Address, "interval", interval.String())
	for {
		logChainStatus(ctx, chain)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func logChainStatus(ctx context.Context, chain *xmr.NodeRPC) {
	queryCtx, cancel := context.WithTimeout(ctx, statusQueryTimeout)
	defer cancel()

	height, err := chain.LastBlockHeight(queryCtx)
	if err != nil {
		slog.Warn("chain status query failed", "error", err)
		return
	}
	blockTime, err := chain.LastBlockTime(queryCtx)
	if err != nil {
		slog.Warn("chain status query failed", "error", err)
		return
	}
	slog.Info("chain status", "status", StatusLine(height, blockTime, time.Now().UTC()))
}
