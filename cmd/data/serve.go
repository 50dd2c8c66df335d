package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dataassist/internal/analyzer"
	"dataassist/internal/server"
	"dataassist/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Server.AuthToken == "" {
			return fmt.Errorf("server.auth_token is required, set DATA_AUTH_TOKEN")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		chatSvc, cleanup, err := buildChatService(db)
		if err != nil {
			return err
		}
		defer cleanup()

		tasks, err := buildTaskRepo()
		if err != nil {
			return err
		}

		account := cfg.Analyzer.UserAddress
		analyzerSvc := analyzer.NewService(
			analyzer.NewInboxAnalyzer(account, cfg.Analyzer.MinDomainCount, cfg.SuggestionTTL(), nil),
			analyzer.NewAttentionAnalyzer(account, cfg.Analyzer.UserAddress, cfg.AttentionTTL()),
			analyzer.NewCalendarAnalyzer(),
		)

		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if !cfg.Logging.DebugMode {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(
			chatSvc,
			tasks,
			analyzerSvc,
			store.NewSuggestionStore(db),
			store.NewAttentionStore(db),
			logger,
		)

		if !quietFlag {
			fmt.Printf("Listening on %s\n", cfg.Server.Addr)
		}
		return srv.Router(cfg.Server.AuthToken).Run(cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
