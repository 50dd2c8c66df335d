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

var suggestionsAccount string

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List pending inbox rule suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pending, err := store.NewSuggestionStore(db).ListPending(suggestionsAccount)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pending)
		}

		if len(pending) == 0 {
			fmt.Println("No pending suggestions.")
			return nil
		}
		for _, sug := range pending {
			fmt.Printf("  %s  %s\n", display.Dim.Render(sug.ID), display.SuggestionLine(sug))
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve ID [ID...]",
	Short: "Approve suggestions so the label rule takes effect",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolveSuggestions(args, analyzer.SuggestionApproved) },
}

var rejectCmd = &cobra.Command{
	Use:   "reject ID [ID...]",
	Short: "Reject suggestions; the pattern will not be suggested again",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolveSuggestions(args, analyzer.SuggestionRejected) },
}

func resolveSuggestions(ids []string, status string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	suggestions := store.NewSuggestionStore(db)
	for _, id := range ids {
		if err := suggestions.SetStatus(id, status); err != nil {
			display.ErrorMsg("%s: %v", id, err)
			continue
		}
		display.SuccessMsg("%s: %s", status, id)
	}
	return nil
}

func init() {
	suggestionsCmd.Flags().StringVar(&suggestionsAccount, "account", "", "Filter by account")
	suggestionsCmd.AddCommand(approveCmd)
	suggestionsCmd.AddCommand(rejectCmd)

	rootCmd.AddCommand(suggestionsCmd)
}
