// ABOUTME: Entry point for the notetaker-gateway server
// ABOUTME: Schedules recording bots and reconciles them against the provider

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/notefold/notetaker/internal/auth"
	"github.com/notefold/notetaker/internal/config"
	"github.com/notefold/notetaker/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _       _        _
 _ __   ___ | |_ ___| |_ __ _| | _____ _ __
| '_ \ / _ \| __/ _ \ __/ _' | |/ / _ \ '__|
| | | | (_) | ||  __/ || (_| |   <  __/ |
|_| |_|\___/ \__\___|\__\__,_|_|\_\___|_|
`

const sampleConfig = `server:
  http_addr: "127.0.0.1:8080"

database:
  path: "${HOME}/.local/share/notetaker/gateway.db"

provider:
  api_key: "${NOTETAKER_PROVIDER_KEY}"
  base_url: "https://us-east-1.recording-provider.example.com/api/v1"
  bot_name: "Notetaker"

recording:
  default_lead_minutes: 10
  poll_interval: "30s"

auth:
  jwt_secret: "${NOTETAKER_JWT_SECRET}"

logging:
  level: "info"
  format: "text"
`

// getConfigPath returns the path to the gateway config file.
// Priority: NOTETAKER_CONFIG env var > XDG_CONFIG_HOME/notetaker/gateway.yaml > ~/.config/notetaker/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("NOTETAKER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "notetaker", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: notetaker-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                Start the gateway server")
		fmt.Println("  init                 Write a starter config file")
		fmt.Println("  health               Check gateway health")
		fmt.Println("  token --sub NAME     Mint a service token for the API")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken()
	case "version":
		fmt.Println(version)
	default:
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	fmt.Print(color.CyanString(banner))
	fmt.Printf("notetaker-gateway %s\n\n", version)

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return err
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return err
	}
	return gw.Run(ctx)
}

func runInit() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("Config written to %s", path)
	fmt.Println("Set NOTETAKER_PROVIDER_KEY and NOTETAKER_JWT_SECRET, then run: notetaker-gateway serve")
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return err
	}

	url := "http://" + cfg.Server.HTTPAddr + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && body["status"] == "ok" {
		color.Green("Gateway healthy at %s", cfg.Server.HTTPAddr)
		return nil
	}
	return fmt.Errorf("gateway unhealthy: %d %v", resp.StatusCode, body)
}

func runToken() error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	sub := fs.String("sub", "", "subject for the token (e.g. svc-calendar-sync)")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *sub == "" {
		return fmt.Errorf("--sub is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(*sub, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}
