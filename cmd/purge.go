package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/study"
)

// Static errors for CLI commands
var (
	// ErrNoBackendConfigured is returned when the study has no database backend
	ErrNoBackendConfigured = errors.New("no database backend configured")
	// ErrFilterRequired is returned when purge is invoked without a filter or --all
	ErrFilterRequired = errors.New("refusing to purge everything; pass a filter or --all")
)

//nolint:gochecknoglobals // Cobra commands are typically global
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cache entries from the configured backend",
	Long: `Deletes cache entries matching the given owner/flag filter. Purging the
whole cache requires the explicit --all flag.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := study.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if config.Database.Backend == study.BackendNone {
			return ErrNoBackendConfigured
		}

		owner, _ := cmd.Flags().GetString("owner")
		flag, _ := cmd.Flags().GetString("flag")
		all, _ := cmd.Flags().GetBool("all")

		if owner == "" && flag == "" && !all {
			return ErrFilterRequired
		}

		db, err := study.OpenDatabase(cmd.Context(), logger, config)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.WithError(closeErr).Warn("Failed to close database")
			}
		}()

		filter := database.Filter{
			Owner: owner,
			Flag:  flags.Flag(flag),
		}

		matched, err := db.ListKeys(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		if len(matched) == 0 {
			fmt.Println("No cache entries matched")
			return nil
		}

		if err := db.Delete(cmd.Context(), filter); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}

		fmt.Printf("Deleted %d cache entries\n", len(matched))

		return nil
	},
}

func init() {
	purgeCmd.Flags().String("owner", "", "filter by owner dataset name")
	purgeCmd.Flags().String("flag", "", "filter by flag")
	purgeCmd.Flags().Bool("all", false, "delete every cache entry")

	rootCmd.AddCommand(purgeCmd)
}
