package config

import (
	"fmt"
	"log"

	"food-marketplace-api/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase connects with the configured driver.
func OpenDatabase(cfg Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver != "postgres" {
		// SQLite allows one writer; a single connection also keeps ":memory:" databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.Rating{},
		&models.RewardAccount{},
		&models.RewardTransaction{},
		&models.RewardTier{},
		&models.Message{},
		&models.PartnerApplication{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// DefaultRewardTiers are seeded when the tier table is empty.
var DefaultRewardTiers = []models.RewardTier{
	{Name: "Bronze", PointsRequired: 500, DiscountPercentage: decimal.NewFromInt(10), MaxDiscountAmount: decimal.NewFromInt(1000)},
	{Name: "Silver", PointsRequired: 1000, DiscountPercentage: decimal.NewFromInt(12), MaxDiscountAmount: decimal.NewFromInt(2000)},
	{Name: "Gold", PointsRequired: 2500, DiscountPercentage: decimal.NewFromInt(15), MaxDiscountAmount: decimal.NewFromInt(5000)},
}

// SeedRewardTiers inserts the default tiers once.
func SeedRewardTiers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.RewardTier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tiers := make([]models.RewardTier, len(DefaultRewardTiers))
	copy(tiers, DefaultRewardTiers)
	if err := db.Create(&tiers).Error; err != nil {
		return err
	}
	log.Println("✅ Reward tiers seeded")
	return nil
}
