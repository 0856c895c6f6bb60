// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/mentor-tui/internal/api"
	"github.com/jeranaias/mentor-tui/internal/config"
)

// HandleHealth probes the server's liveness endpoint once and reports the
// interpreted result.
func HandleHealth(args Args) error {
	cfg, client, err := loadClient(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := client.Health(ctx)
	if err != nil {
		if api.IsUnreachable(err) {
			return fmt.Errorf("no server answering at %s", cfg.Server.URL)
		}
		return err
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(status)
	}

	switch {
	case status.AuthExpired:
		fmt.Printf("auth expired (HTTP %d): sign in again\n", status.StatusCode)
	case status.Healthy:
		fmt.Printf("healthy (HTTP %d)\n", status.StatusCode)
	default:
		fmt.Printf("unhealthy (HTTP %d)\n", status.StatusCode)
	}
	return nil
}

// HandleConfig manages the configuration file.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if args.JSON {
			return json.NewEncoder(os.Stdout).Encode(cfg)
		}
		path, _ := config.ConfigPath()
		fmt.Printf("config file: %s\n", path)
		fmt.Printf("server.url:  %s\n", cfg.Server.URL)
		fmt.Printf("relay:       enabled=%v url=%s\n", cfg.Relay.Enabled, cfg.Relay.URL)
		fmt.Printf("health:      interval=%ds threshold=%d\n",
			cfg.Health.IntervalSecs, cfg.Health.FailureThreshold)
		fmt.Printf("ui:          theme=%s ai_name=%s\n", cfg.UI.Theme, cfg.UI.AIName)
		return nil

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (want show, init, or path)", args.Subcommand)
	}
}
