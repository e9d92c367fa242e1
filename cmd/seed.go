package cmd

import (
	"fmt"
	"log"

	"food-marketplace-api/models"

	"github.com/jaswdr/faker"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedOpts struct {
	restaurants int
	customers   int
	riders      int
	items       int
	password    string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo users, restaurants and menus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		return seed(db.WithContext(cmd.Context()))
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.restaurants, "restaurants", 10, "restaurants to create, each with its own owner")
	f.IntVar(&seedOpts.customers, "customers", 50, "customers to create")
	f.IntVar(&seedOpts.riders, "riders", 10, "riders to create")
	f.IntVar(&seedOpts.items, "menu-items", 8, "menu items per restaurant")
	f.StringVar(&seedOpts.password, "password", "password123", "password for every seeded account")
}

var (
	cuisines   = []string{"Italian", "Indian", "Chinese", "Mexican", "Thai", "Japanese", "American", "Mediterranean"}
	categories = []string{"Starters", "Mains", "Sides", "Desserts", "Drinks"}
)

func seed(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedOpts.password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fake := faker.New()
	total := 1 + seedOpts.restaurants + seedOpts.customers + seedOpts.riders
	bar := progressbar.Default(int64(total), "seeding")

	newUser := func(tx *gorm.DB, kind string, i int, role models.UserRole) (*models.User, error) {
		u := &models.User{
			Name:         fake.Person().Name(),
			Email:        fmt.Sprintf("%s%d@marketplace.test", kind, i),
			PasswordHash: string(hash),
			Role:         role,
			Phone:        fake.Phone().Number(),
		}
		return u, tx.Where(models.User{Email: u.Email}).FirstOrCreate(u).Error
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := newUser(tx, "admin", 0, models.RoleAdmin); err != nil {
			return err
		}
		_ = bar.Add(1)

		for i := 1; i <= seedOpts.restaurants; i++ {
			owner, err := newUser(tx, "owner", i, models.RoleRestaurant)
			if err != nil {
				return err
			}
			restaurant := models.Restaurant{
				OwnerID:     owner.ID,
				Name:        fake.Company().Name(),
				Cuisine:     fake.RandomStringElement(cuisines),
				Address:     fake.Address().Address(),
				Description: fake.Lorem().Sentence(8),
				IsOpen:      true,
			}
			if err := tx.Where(models.Restaurant{OwnerID: owner.ID}).FirstOrCreate(&restaurant).Error; err != nil {
				return err
			}
			var existing int64
			if err := tx.Model(&models.MenuItem{}).Where("restaurant_id = ?", restaurant.ID).Count(&existing).Error; err != nil {
				return err
			}
			for j := int(existing); j < seedOpts.items; j++ {
				item := models.MenuItem{
					RestaurantID: restaurant.ID,
					Name:         fake.Lorem().Word() + " " + fake.RandomStringElement([]string{"Bowl", "Plate", "Wrap", "Special"}),
					Description:  fake.Lorem().Sentence(10),
					Price:        decimal.NewFromFloat(fake.Float64(2, 4, 30)).Round(2),
					Category:     fake.RandomStringElement(categories),
					IsAvailable:  true,
					IsVeg:        fake.Bool(),
					Options: []models.MenuOption{
						{Group: "Size", Name: "Regular", PriceDelta: decimal.Zero},
						{Group: "Size", Name: "Large", PriceDelta: decimal.RequireFromString("2.00")},
					},
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			_ = bar.Add(1)
		}

		for i := 1; i <= seedOpts.customers; i++ {
			if _, err := newUser(tx, "customer", i, models.RoleCustomer); err != nil {
				return err
			}
			_ = bar.Add(1)
		}
		for i := 1; i <= seedOpts.riders; i++ {
			if _, err := newUser(tx, "rider", i, models.RoleRider); err != nil {
				return err
			}
			_ = bar.Add(1)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()
	log.Printf("🌱 Seeded %d restaurants, %d customers and %d riders (password %q)",
		seedOpts.restaurants, seedOpts.customers, seedOpts.riders, seedOpts.password)
	return nil
}
