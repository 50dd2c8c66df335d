package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dataassist/internal/action"
	"dataassist/internal/assembly"
	"dataassist/internal/chat"
	"dataassist/internal/display"
	"dataassist/internal/types"
)

var (
	chatTaskID string
	chatScope  string
	chatUnsafe bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [MESSAGE]",
	Short: "Talk to the assistant; no message starts an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc, cleanup, err := buildChatService(db)
		if err != nil {
			return err
		}
		defer cleanup()

		tasks, err := buildTaskRepo()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var task *types.Task
		if chatTaskID != "" {
			if tasks == nil {
				return fmt.Errorf("--task requires a configured task backend")
			}
			task, err = findTask(ctx, tasks, chatTaskID)
			if err != nil {
				return err
			}
		}

		if len(args) > 0 {
			return runTurn(ctx, svc, tasks, task, strings.Join(args, " "))
		}
		return runInteractive(ctx, svc, tasks, task)
	},
}

func findTask(ctx context.Context, repo types.TaskRepository, id string) (*types.Task, error) {
	all, err := repo.Fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("task %s not found", id)
}

func runTurn(ctx context.Context, svc *chat.Service, repo types.TaskRepository, task *types.Task, message string) error {
	scopeKey := "general"
	if task != nil {
		scopeKey = "task:" + task.ID
	}

	resp, err := svc.HandleTurn(ctx, chat.Request{
		ScopeKey:    scopeKey,
		Scope:       assembly.Scope(chatScope),
		Message:     message,
		Task:        task,
		AllowUnsafe: chatUnsafe,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Reply)

	if resp.TaskUpdate != nil && task != nil {
		return confirmAndApply(ctx, repo, *resp.TaskUpdate, task)
	}
	for _, p := range resp.PortfolioUpdates {
		display.SubHeader(fmt.Sprintf("Proposed for task %s: %s", p.TargetTaskID, action.ConfirmationText(p.TaskUpdate)))
	}
	return nil
}

// confirmAndApply gates a proposed mutation behind an explicit yes.
func confirmAndApply(ctx context.Context, repo types.TaskRepository, update action.TaskUpdate, task *types.Task) error {
	if repo == nil {
		display.ErrorMsg("no task backend configured, cannot apply")
		return nil
	}

	fmt.Print(display.ConfirmPrompt(action.ConfirmationText(update), task))
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Not applied.")
		return nil
	}

	applied, err := action.Apply(ctx, repo, update, task.ID)
	if err != nil {
		return err
	}
	display.SuccessMsg("Applied: %s", display.TaskLine(*applied))
	return nil
}

func runInteractive(ctx context.Context, svc *chat.Service, repo types.TaskRepository, task *types.Task) error {
	if !quietFlag {
		display.Header("DATA chat. Empty line or Ctrl-D exits.")
	}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}
		if err := runTurn(ctx, svc, repo, task, line); err != nil {
			display.ErrorMsg("%v", err)
		}
	}
}

func init() {
	chatCmd.Flags().StringVar(&chatTaskID, "task", "", "Task id to load as conversation context")
	chatCmd.Flags().StringVar(&chatScope, "scope", "general", "Conversation scope: task, portfolio, email, general")
	chatCmd.Flags().BoolVar(&chatUnsafe, "allow-unsafe", false, "Share a privacy-blocked email body for this turn only")

	rootCmd.AddCommand(chatCmd)
}
