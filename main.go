// @title Bizbox Backend API
// @version 1.0
// @description Multi-tenant backend: CBT practice exams, WhatsApp inbox, notifications, commerce and blog.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"bizbox_backend/internal/app"
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/pkg/logger"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bizbox",
		Short:        "Bizbox backend server",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "configs", "Directory containing config.yaml")

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), importQuestionsCmd())

	// serve is the default command.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.ForceMigrate, _ = cmd.Flags().GetBool("migrate")

			application, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			defer logger.Log.Sync()
			return application.Run()
		},
	}
	cmd.Flags().Bool("migrate", false, "Run migrations on start even in release mode")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.ForceMigrate = true
			cfg.MigrateOnly = true

			if _, err := app.NewApp(cfg); err != nil {
				return err
			}
			defer logger.Log.Sync()
			logger.Log.Info("Database migration finished")
			return nil
		},
	}
}

func importQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Import questions from an xlsx workbook into a subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("file")
			subjectID, _ := cmd.Flags().GetUint("subject")

			logger.InitLogger(cfg)
			defer logger.Log.Sync()

			db, rdb, err := app.OpenStores(cfg)
			if err != nil {
				return err
			}
			cache := service.NewSessionCache(rdb, time.Duration(cfg.CBT.SessionCacheSeconds)*time.Second)
			importer := service.NewQuestionImportService(db, repository.NewCBTRepository(db), cache)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			result, err := importer.ImportFile(ctx, subjectID, file)
			if err != nil {
				return err
			}

			logger.Log.Info("Questions imported",
				zap.Int("processed", result.Processed),
				zap.Int("created", result.Created),
				zap.Int("skipped", result.Skipped))
			for _, msg := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to the .xlsx workbook")
	cmd.Flags().Uint("subject", 0, "Subject id receiving the questions")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
