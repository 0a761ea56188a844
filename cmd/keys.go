package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/flags"
	"github.com/enerframe/enerframe/pkg/study"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List cache keys in the configured backend",
	Long: `Lists the logical cache keys stored in the study's database backend,
optionally filtered by owner dataset name and flag.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := study.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if config.Database.Backend == study.BackendNone {
			return ErrNoBackendConfigured
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

		owner, _ := cmd.Flags().GetString("owner")
		flag, _ := cmd.Flags().GetString("flag")

		keys, err := db.ListKeys(cmd.Context(), database.Filter{
			Owner: owner,
			Flag:  flags.Flag(flag),
		})
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		if len(keys) == 0 {
			fmt.Println("No cache entries found")
			return nil
		}

		for _, key := range keys {
			fmt.Println(key)
		}

		fmt.Printf("\n%d cache entries\n", len(keys))

		return nil
	},
}

func init() {
	keysCmd.Flags().String("owner", "", "filter by owner dataset name")
	keysCmd.Flags().String("flag", "", "filter by flag")

	rootCmd.AddCommand(keysCmd)
}
