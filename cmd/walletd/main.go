package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/walletgui/walletd/internal/walletd"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			if err := runConfig(os.Args[2:]); err != nil {
				log.Fatal(err)
			}
			return
		case "backups":
			if err := runBackups(os.Args[2:]); err != nil {
				log.Fatal(err)
			}
			return
		case "prune":
			if err := runPrune(os.Args[2:]); err != nil {
				log.Fatal(err)
			}
			return
		}
	}

	// We DON'T want to be running as root...
	if os.Getuid() == 0 {
		log.Fatalf("Don't run walletd as root!")
	}

	configPath := "walletd.yml"
	if len(os.Args) > 1 && os.Args[1] != "" {
		configPath = os.Args[1]
	}

	nodePassword, err := promptNodePassword(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if err := walletd.Run(context.Background(), configPath, nodePassword); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func configPathArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "walletd.yml"
}

func runConfig(args []string) error {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "output JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	path := configPathArg(flags.Args())
	cfg, err := walletd.LoadOrCreateConfig(path, defaultCLIConfig(path))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runBackups(args []string) error {
	flags := flag.NewFlagSet("backups", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "output JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := walletd.LoadConfig(configPathArg(flags.Args()))
	if err != nil {
		return err
	}

	entries, err := listConfiguredBackups(cfg)
	if err != nil {
		return err
	}

	if *jsonOut {
		type entry struct {
			Path     string `json:"path"`
			Size     int64  `json:"size"`
			Modified string `json:"modified"`
		}
		out := make([]entry, 0, len(entries))
		for _, e := range entries {
			out = append(out, entry{Path: e.Path, Size: e.Size, Modified: e.Modified.Format(time.RFC3339)})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(entries) == 0 {
		fmt.Println("no backups found")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %8d  %s\n", e.Modified.Format("2006-01-02 15:04"), e.Size, e.Path)
	}
	return nil
}

func runPrune(args []string) error {
	cfg, err := walletd.LoadConfig(configPathArg(args))
	if err != nil {
		return err
	}

	dir, base, ext := backupLocation(cfg)
	removed, err := walletd.PruneBackups(dir, base, ext, cfg.Backup.Retention)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d backup(s), keeping the %d most recent\n", removed, cfg.Backup.Retention)
	return nil
}

func listConfiguredBackups(cfg *walletd.Config) ([]walletd.BackupEntry, error) {
	dir, base, ext := backupLocation(cfg)
	return walletd.ListBackups(dir, base, ext)
}

func backupLocation(cfg *walletd.Config) (dir, base, ext string) {
	name := filepath.Base(cfg.WalletFile)
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	dir = filepath.Join(cfg.DataDir, "backup")
	return dir, base, ext
}

func defaultCLIConfig(path string) *walletd.Config {
	dir := filepath.Dir(path)
	return &walletd.Config{
		WalletFile: filepath.Join(dir, "my"+walletd.WalletExtension),
		Logging:    walletd.LoggingConfig{Level: "info"},
		Node:       walletd.NodeConfig{Address: "http://127.0.0.1:18082/json_rpc"},
	}
}

// promptNodePassword asks for the node RPC password when the config names
// a user but stores no password. The password is read without echoing.
func promptNodePassword(configPath string) (string, error) {
	cfg, err := walletd.LoadConfig(configPath)
	if err != nil {
		// Run creates the config on first start; nothing to prompt for.
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	if cfg.Node.Username == "" || cfg.Node.Password != "" {
		return "", nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("node.password is not set and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Enter node RPC password for %s: ", cfg.Node.Username)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
