package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataassist/internal/analyzer"
	"dataassist/internal/display"
	"dataassist/internal/gmail"
	"dataassist/internal/store"
)

var (
	analyzeQuery string
	analyzeLimit int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan recent email for rule suggestions and attention items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mail, err := gmail.NewRepository(ctx, cfg.Gmail.CredentialsPath, cfg.Gmail.TokenPath)
		if err != nil {
			return err
		}

		emails, err := mail.List(ctx, analyzeQuery, analyzeLimit)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			if !quietFlag {
				fmt.Println("No messages to analyze.")
			}
			return nil
		}

		account := cfg.Analyzer.UserAddress
		svc := analyzer.NewService(
			analyzer.NewInboxAnalyzer(account, cfg.Analyzer.MinDomainCount, cfg.SuggestionTTL(), nil),
			analyzer.NewAttentionAnalyzer(account, cfg.Analyzer.UserAddress, cfg.AttentionTTL()),
			analyzer.NewCalendarAnalyzer(),
		)

		report, err := svc.Run(ctx, emails, nil)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		suggestions := store.NewSuggestionStore(db)
		attention := store.NewAttentionStore(db)
		for _, sug := range report.Suggestions {
			if err := suggestions.Save(sug); err != nil {
				display.ErrorMsg("save suggestion %s: %v", sug.PatternValue, err)
			}
		}
		for _, item := range report.Attention {
			if err := attention.Save(item); err != nil {
				display.ErrorMsg("save attention item %s: %v", item.EmailID, err)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		display.Header(fmt.Sprintf("Analyzed %d messages", len(emails)))
		if len(report.Suggestions) == 0 && len(report.Attention) == 0 {
			fmt.Println("Nothing new.")
			return nil
		}
		if len(report.Suggestions) > 0 {
			display.SubHeader("Rule suggestions")
			for _, sug := range report.Suggestions {
				fmt.Println("  " + display.SuggestionLine(sug))
			}
		}
		if len(report.Attention) > 0 {
			display.SubHeader("Needs attention")
			for _, item := range report.Attention {
				fmt.Println("  " + display.AttentionLine(item))
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeQuery, "query", "in:inbox newer_than:7d", "Gmail search query")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 100, "Maximum messages to fetch")

	rootCmd.AddCommand(analyzeCmd)
}
