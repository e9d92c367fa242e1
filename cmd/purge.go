package cmd

import (
	"log"
	"time"

	"food-marketplace-api/realtime"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/spf13/cobra"
)

var purgeOlderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old messages on finished orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		messages := services.NewMessageService(store.New(db, realtime.NewHub()))
		n, err := messages.Purge(cmd.Context(), time.Now().Add(-purgeOlderThan))
		if err != nil {
			return err
		}
		log.Printf("🧹 Purged %d messages older than %s from finished orders", n, purgeOlderThan)
		return nil
	},
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "delete messages older than this")
}
