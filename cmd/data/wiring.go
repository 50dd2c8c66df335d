package main

import (
	"fmt"

	"dataassist/internal/assembly"
	"dataassist/internal/attach"
	"dataassist/internal/chat"
	"dataassist/internal/executor"
	"dataassist/internal/intent"
	"dataassist/internal/llm"
	"dataassist/internal/logging"
	"dataassist/internal/privacy"
	"dataassist/internal/smartsheet"
	"dataassist/internal/store"
	"dataassist/internal/types"
)

// openDB opens the sqlite store from config.
func openDB() (*store.DB, error) {
	db, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// buildBackends constructs the primary backend and, when a key is
// configured, the secondary. A missing secondary degrades to
// primary-only routing.
func buildBackends() (llm.Backend, llm.Backend, error) {
	primary, err := llm.NewAnthropicBackend(cfg.LLM.Primary, cfg.PrimaryTimeout())
	if err != nil {
		return nil, nil, err
	}

	var secondary llm.Backend
	if cfg.LLM.Secondary.APIKey != "" {
		g, err := llm.NewGeminiBackend(cfg.LLM.Secondary, cfg.SecondaryTimeout())
		if err != nil {
			logging.Boot("secondary backend unavailable: %v", err)
		} else {
			secondary = g
		}
	}
	return primary, secondary, nil
}

// buildChatService wires the full turn pipeline over the given store.
// The returned cleanup closes the blocklist watcher.
func buildChatService(db *store.DB) (*chat.Service, func(), error) {
	primary, secondary, err := buildBackends()
	if err != nil {
		return nil, nil, err
	}

	blocklist, err := privacy.NewBlocklist(cfg.Privacy.BlocklistPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load blocklist: %w", err)
	}

	var log types.ConversationLog = store.NewConversationStore(db)
	if cfg.Store.FallbackDir != "" {
		log = store.NewFallbackLog(log, cfg.Store.FallbackDir)
	}

	svc := chat.NewService(
		intent.NewClassifier(secondary),
		assembly.NewAssembler(cfg.History.ActionTurns, cfg.History.RecentTurns),
		executor.New(primary, secondary),
		privacy.NewChecker(blocklist, cfg.Privacy.SensitiveLabels),
		log,
		attach.NewHTTPFetcher(cfg.DownloadTimeout()),
		cfg.Attachments.MaxImageBytes,
	)
	cleanup := func() { blocklist.Close() }
	return svc, cleanup, nil
}

// buildTaskRepo constructs the Smartsheet repository when configured.
func buildTaskRepo() (types.TaskRepository, error) {
	if cfg.Smartsheet.APIKey == "" {
		return nil, nil
	}
	return smartsheet.NewClient(
		cfg.Smartsheet.APIKey,
		cfg.Smartsheet.BaseURL,
		cfg.Smartsheet.SheetID,
		cfg.SmartsheetTimeout(),
	)
}
