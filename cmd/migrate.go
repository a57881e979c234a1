package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store migrations",
	Long:  "Brings the configured store's schema up to date. With --prune-cache, also deletes expired cached pages.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))

		if prune, _ := cmd.Flags().GetBool("prune-cache"); prune {
			n, err := st.DeleteExpiredPages(ctx)
			if err != nil {
				return eris.Wrap(err, "migrate: prune page cache")
			}
			zap.L().Info("page cache pruned", zap.Int("deleted", n))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("prune-cache", false, "delete expired cached pages")
	rootCmd.AddCommand(migrateCmd)
}
