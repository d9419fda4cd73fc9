package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lunara/internal/access"
	"lunara/internal/repository"
	"lunara/internal/service"
)

// migrateCmd applies pending schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, closeFn, err := open()
		if err != nil {
			return err
		}
		defer closeFn()

		applied, err := e.db.RunMigrations(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
		}
		return nil
	},
}

// unlockKidCmd clears a kid's PIN lockout
var unlockKidCmd = &cobra.Command{
	Use:   "unlock-kid <kid-id>",
	Short: "Clear a kid's failed PIN attempts and lockout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kidID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || kidID <= 0 {
			return fmt.Errorf("invalid kid id %q", args[0])
		}

		e, closeFn, err := open()
		if err != nil {
			return err
		}
		defer closeFn()

		families := service.NewFamilyService(e.db, service.SystemClock(e.cfg.Location), e.logger)
		if err := families.UnlockKid(cmd.Context(), kidID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kid %d unlocked\n", kidID)
		return nil
	},
}

// cleanupCmd runs the server's periodic cleanup once
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired parent sessions and expire stale invites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, closeFn, err := open()
		if err != nil {
			return err
		}
		defer closeFn()

		clock := service.SystemClock(e.cfg.Location)
		sessions, err := service.NewAuthService(e.db, e.cfg.SessionDuration, clock, e.logger).CleanupExpiredSessions(cmd.Context())
		if err != nil {
			return err
		}
		invites, err := service.NewInviteService(e.db, nil, clock, e.logger).ExpireStale(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired sessions, expired %d invites\n", sessions, invites)
		return nil
	},
}

var (
	exportEmail  string
	exportFamily int64
	exportOutput string
)

// exportFamilyCmd writes a JSON snapshot of a family
var exportFamilyCmd = &cobra.Command{
	Use:   "export-family",
	Short: "Export a family to a JSON file",
	Long: `Export a family's members, kids, moon ledger, owned items, holidays and
invites to a JSON file. The export runs as the given parent, so only a family
that parent belongs to can be exported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, closeFn, err := open()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		user, err := repository.NewUserRepository(e.db).GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(exportEmail)))
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no parent with email %q", exportEmail)
		}

		output := exportOutput
		if output == "" {
			output = fmt.Sprintf("family_%d_%s.json", exportFamily, time.Now().Format("20060102_150405"))
		}

		exports := service.NewExportService(e.db, service.SystemClock(e.cfg.Location))
		if err := exports.ExportToFile(ctx, access.Standard{UserID: user.ID}, exportFamily, output); err != nil {
			return err
		}
		e.logger.Infow("family exported", "family_id", exportFamily, "parent_id", user.ID, "path", output)
		fmt.Fprintf(cmd.OutOrStdout(), "Exported family %d to %s\n", exportFamily, output)
		return nil
	},
}

func init() {
	exportFamilyCmd.Flags().StringVar(&exportEmail, "email", "", "email of a parent in the family (required)")
	exportFamilyCmd.Flags().Int64Var(&exportFamily, "family", 0, "family id (required)")
	exportFamilyCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: family_<id>_YYYYMMDD_HHMMSS.json)")
	_ = exportFamilyCmd.MarkFlagRequired("email")
	_ = exportFamilyCmd.MarkFlagRequired("family")
}
