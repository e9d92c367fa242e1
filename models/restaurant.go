package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OwnerID     uint       `json:"owner_id" gorm:"not null;index"`
	Owner       User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string     `json:"name" gorm:"not null"`
	Cuisine     string     `json:"cuisine"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsOpen      bool       `json:"is_open" gorm:"default:true"`
	Rating      float64    `json:"rating" gorm:"default:0"`
	RatingCount int64      `json:"rating_count" gorm:"default:0"`
	MenuItems   []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MenuOption is a selectable customization offered on a menu item,
// e.g. group "Size", name "Large", price delta 1.50.
type MenuOption struct {
	Group      string          `json:"group"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type MenuItem struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	RestaurantID uint            `json:"restaurant_id" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"not null"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url,omitempty"`
	Options      []MenuOption    `json:"options,omitempty" gorm:"serializer:json"`
	IsAvailable  bool            `json:"is_available" gorm:"default:true"`
	IsVeg        bool            `json:"is_veg" gorm:"default:false"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FindOption returns the offered option matching group and name.
func (m *MenuItem) FindOption(group, name string) (MenuOption, bool) {
	for _, o := range m.Options {
		if o.Group == group && o.Name == name {
			return o, true
		}
	}
	return MenuOption{}, false
}
