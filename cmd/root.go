package cmd

import (
	"fmt"
	"os"

	"food-marketplace-api/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "food-marketplace-api",
	Short: "Food ordering marketplace API",
	Long: `food-marketplace-api serves the customer, restaurant, rider and admin APIs
of a food ordering marketplace: order lifecycle, auto-accept countdowns,
live order boards, rewards and ratings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db-dsn", "", "database DSN")
	cobra.CheckErr(viper.BindPFlag("db.driver", rootCmd.PersistentFlags().Lookup("db-driver")))
	cobra.CheckErr(viper.BindPFlag("db.dsn", rootCmd.PersistentFlags().Lookup("db-dsn")))

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, purgeCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile)
}

// openDatabase connects, migrates and seeds the reward tiers.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := config.OpenDatabase(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	if err := config.SeedRewardTiers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
