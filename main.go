// botler - a terminal, tool-using, multi-persona conversational agent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/archive"
	"github.com/harangju/botler/internal/chain"
	"github.com/harangju/botler/internal/cli"
	"github.com/harangju/botler/internal/config"
	"github.com/harangju/botler/internal/engine"
	"github.com/harangju/botler/internal/history"
	"github.com/harangju/botler/internal/llm"
	"github.com/harangju/botler/internal/memory"
	"github.com/harangju/botler/internal/session"
	"github.com/harangju/botler/internal/tools"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.botler/config.toml)")
	agentName := flag.String("agent", "", "persona to start with")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("botler %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *agentName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, agentName string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if agentName != "" {
		cfg.Chat.DefaultAgent = agentName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalog := agent.Builtins()
	start, ok := catalog.Get(cfg.Chat.DefaultAgent)
	if !ok {
		return fmt.Errorf("unknown persona %q (try /agents)", cfg.Chat.DefaultAgent)
	}

	client := llm.NewClient(cfg.Model.APIKey).
		WithModel(cfg.Model.ID).
		WithMaxTokens(cfg.Model.MaxTokens).
		WithRateLimit(cfg.Model.RequestsPerSecond)

	registry := tools.NewBuiltinRegistry(cfg.Paths.WorkspaceDir)
	executor := tools.NewExecutor(registry)
	executor.SetTimeout(cfg.ToolTimeout())
	executor.SetMaxOutputSize(cfg.Tools.MaxOutputBytes)

	memStore := memory.NewStore(cfg.Paths.DataDir)
	archiveLog := archive.NewLog(cfg.Paths.DataDir)

	// The history index is best-effort; the session runs without it.
	var histStore *history.Store
	if hs, herr := history.Open(cfg.HistoryPath()); herr == nil {
		histStore = hs
		defer histStore.Close()
	} else {
		fmt.Fprintf(os.Stderr, "Warning: history index unavailable: %v\n", herr)
	}

	sess := session.New(start, memStore, client, archiveLog, sessionRecorder(histStore))
	executor.SetArtifactFunc(sess.AddArtifact)

	eng := engine.New(client, executor).WithMaxRounds(cfg.Chat.MaxToolRounds)
	ctrl := chain.New(eng, catalog, memStore).WithMaxHops(cfg.Chat.MaxHops)

	shell := cli.New(cfg, catalog, ctrl, sess, memStore, histStore, client)
	return shell.Run(context.Background())
}

// sessionRecorder avoids handing the session a typed-nil interface when the
// index failed to open.
func sessionRecorder(hs *history.Store) session.Recorder {
	if hs == nil {
		return nil
	}
	return hs
}
