// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/mentor-tui/internal/api"
	"github.com/jeranaias/mentor-tui/internal/config"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/util"
)

// oneShot identifies which legacy endpoint a command maps to.
type oneShot int

const (
	shotAsk oneShot = iota
	shotChat
	shotQA
	shotPractice
)

// HandleOneShot sends a single question to one of the legacy endpoints and
// prints the reply. These endpoints return one full response per request; no
// stream is involved.
func HandleOneShot(kind oneShot, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return fmt.Errorf("no question given")
	}

	cfg, client, err := loadClient(args)
	if err != nil {
		return err
	}

	req := api.OneShotRequest{
		Message:   query,
		SessionID: api.NewSessionID(),
		Name:      cfg.Student.Name,
		StudentNr: cfg.Student.StudentNr,
		Course:    cfg.Student.Course,
		Chapter:   cfg.Student.Chapter,
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.TimeoutSecs)*time.Second)
	defer cancel()

	var resp api.OneShotResponse
	switch kind {
	case shotAsk:
		resp, err = client.Ask(ctx, req)
	case shotChat:
		resp, err = client.Chat(ctx, req)
	case shotQA:
		resp, err = client.QA(ctx, req)
	case shotPractice:
		resp, err = client.Practice(ctx, req)
	}
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("server error: %s", resp.Error)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	printReply(resp)
	return nil
}

// HandleAsk sends the question to the oldest single-page chat form endpoint.
func HandleAsk(args Args) error { return HandleOneShot(shotAsk, args) }

// HandleChat sends the question to the legacy one-shot chat endpoint.
func HandleChat(args Args) error { return HandleOneShot(shotChat, args) }

// HandleQA sends the question to the legacy course Q&A endpoint.
func HandleQA(args Args) error { return HandleOneShot(shotQA, args) }

// HandlePractice sends the question to the legacy practice-tutor endpoint.
func HandlePractice(args Args) error { return HandleOneShot(shotPractice, args) }

func printReply(resp api.OneShotResponse) {
	body := resp.Response
	sentinel := model.DetectSentinel(body)
	for _, token := range []string{model.TokenFinished, model.TokenReported, model.TokenTooLong} {
		body = strings.ReplaceAll(body, token, "")
	}

	md := util.HTMLToMarkdown(body)
	out := md
	if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
		if rendered, rerr := renderer.Render(md); rerr == nil {
			out = rendered
		}
	}
	fmt.Print(strings.TrimRight(out, "\n") + "\n")

	if resp.Metadata != nil {
		if sources := resp.Metadata.ParseSources(); len(sources) > 0 {
			fmt.Println("\nSources:")
			for _, s := range sources {
				if s.Title != "" {
					fmt.Printf("  - %s (%s)\n", s.Title, s.URL)
				} else {
					fmt.Printf("  - %s\n", s.URL)
				}
			}
		}
	}

	switch sentinel {
	case model.SentinelFinished:
		fmt.Println("\nThis conversation has concluded.")
	case model.SentinelReported:
		fmt.Println("\nThis conversation was flagged and closed.")
	case model.SentinelTooLong:
		fmt.Println("\nThis conversation has reached its length limit.")
	}
}

// loadClient loads the configuration and builds an API client from it,
// honoring the --config and --server overrides.
func loadClient(args Args) (*config.Config, *api.Client, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:    cfg.Server.URL,
		Timeout:    time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Server.MaxRetries,
		RetryDelay: time.Duration(cfg.Server.RetryDelaySecs) * time.Second,
	})
	return cfg, client, nil
}
