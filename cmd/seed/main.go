// Command seed fills a development database with demo journals.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"iskrib/internal/config"
	"iskrib/internal/database"
	"iskrib/internal/middleware"
	"iskrib/internal/seed"
	"iskrib/internal/storage"

	"github.com/spf13/cobra"
)

var (
	flagUsers        int
	flagJournals     int
	flagMediaPerUser int
	flagMaxDays      int
	flagSeed         int64
	flagClean        bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long:  "seed creates users, journals, likes, comments, opinions, freedom wall items and, with MONGO_URI set, media objects.",
	RunE:  runSeed,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every row the service owns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		return seed.NewSeeder(db, nil, seed.Options{}).WithLogger(middleware.Logger).ClearAll(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().IntVar(&flagUsers, "users", 50, "number of users to create")
	rootCmd.Flags().IntVar(&flagJournals, "journals", 200, "number of journals to create")
	rootCmd.Flags().IntVar(&flagMediaPerUser, "media", 3, "placeholder images per user (needs MONGO_URI)")
	rootCmd.Flags().IntVar(&flagMaxDays, "max-days", 90, "spread timestamps over this many days")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", time.Now().UnixNano(), "random seed")
	rootCmd.Flags().BoolVar(&flagClean, "clean", true, "clear existing data first")

	rootCmd.AddCommand(clearCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Env == "production" {
		return nil, fmt.Errorf("refusing to seed a production database")
	}
	middleware.ConfigureLogger(os.Stdout, cfg.Env, os.Getenv("LOG_LEVEL"))
	return cfg, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := cmd.Context()
	var store storage.ObjectStore
	if cfg.MongoURI != "" {
		mc, err := storage.NewMongoConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mc.Close(closeCtx)
		}()
		store = storage.NewGridFSStore(mc)
	} else {
		middleware.Logger.Warn("MONGO_URI not set, skipping media")
	}

	s := seed.NewSeeder(db, store, seed.Options{
		NumUsers:     flagUsers,
		NumJournals:  flagJournals,
		MediaPerUser: flagMediaPerUser,
		MaxDays:      flagMaxDays,
		Seed:         flagSeed,
	}).WithLogger(middleware.Logger)

	if flagClean {
		if err := s.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}
	if _, err := s.Run(ctx); err != nil {
		return err
	}
	middleware.Logger.Info("seed finished", slog.Int64("seed", flagSeed))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
