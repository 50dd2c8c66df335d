package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataassist/internal/analyzer"
	"dataassist/internal/display"
	"dataassist/internal/store"
)

var attentionAccount string

var attentionCmd = &cobra.Command{
	Use:   "attention",
	Short: "List emails waiting on you",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := store.NewAttentionStore(db).ListActive(attentionAccount)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if len(items) == 0 {
			fmt.Println("Nothing waiting on you.")
			return nil
		}
		for _, item := range items {
			fmt.Printf("  %s  %s\n", display.Dim.Render(item.ID), display.AttentionLine(item))
		}
		return nil
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss ID [ID...]",
	Short: "Dismiss attention items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolveAttention(args, analyzer.AttentionDismissed) },
}

var snoozeCmd = &cobra.Command{
	Use:   "snooze ID [ID...]",
	Short: "Snooze attention items; they can wake back to active",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolveAttention(args, analyzer.AttentionSnoozed) },
}

func resolveAttention(ids []string, status string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	attention := store.NewAttentionStore(db)
	for _, id := range ids {
		if err := attention.SetStatus(id, status); err != nil {
			display.ErrorMsg("%s: %v", id, err)
			continue
		}
		display.SuccessMsg("%s: %s", status, id)
	}
	return nil
}

func init() {
	attentionCmd.Flags().StringVar(&attentionAccount, "account", "", "Filter by account")
	attentionCmd.AddCommand(dismissCmd)
	attentionCmd.AddCommand(snoozeCmd)

	rootCmd.AddCommand(attentionCmd)
}
