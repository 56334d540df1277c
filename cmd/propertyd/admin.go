package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"property-workflow-backend/internal/auth"
	"property-workflow-backend/internal/db"
	"property-workflow-backend/internal/reconcile"
	"property-workflow-backend/internal/store"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and rewrite legacy notice statuses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			return db.Migrate(gormDB)
		},
	}
}

func tokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an existing profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.Auth)
			if err != nil {
				return err
			}

			profile, err := store.NewGormStore(gormDB).GetProfile(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to load profile %s: %w", userID, err)
			}
			token, err := tokens.Issue(*profile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "profile id to issue the token for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconcile pass over completion reports and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}

			res, err := reconcile.NewSweeper(store.NewGormStore(gormDB), cfg.Reconcile.DraftMaxAge).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("sweep finished: %d drafts deleted, %d completed requests without a report", res.DraftsDeleted, len(res.Unlinked))
			return nil
		},
	}
}
