package cart

import (
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// itemRecord is the on-disk shape of a cart line. Money is stored as its
// decimal string form; customizations as JSON.
type itemRecord struct {
	ID                  string `gorm:"primaryKey"`
	RestaurantID        string
	RestaurantName      string
	TableNumber         string
	MenuItemID          string `gorm:"not null"`
	Name                string
	UnitPrice           string
	Quantity            int32 `gorm:"check:quantity>0"`
	Customizations      string
	SpecialInstructions string
}

func (itemRecord) TableName() string { return "cart_items" }

// SQLiteStore persists the cart in a local sqlite database so it survives
// process restarts on the device.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the cart database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open cart db: %w", err)
	}
	if err := db.AutoMigrate(&itemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate cart db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save replaces the persisted cart with snap.
func (s *SQLiteStore) Save(snap Snapshot) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&itemRecord{}).Error; err != nil {
			return err
		}
		for _, it := range snap.Items {
			custom, err := json.Marshal(it.Customizations)
			if err != nil {
				return err
			}
			rec := itemRecord{
				ID:                  it.ID.String(),
				RestaurantID:        snap.RestaurantID,
				RestaurantName:      snap.RestaurantName,
				TableNumber:         snap.TableNumber,
				MenuItemID:          it.MenuItemID,
				Name:                it.Name,
				UnitPrice:           it.UnitPrice.String(),
				Quantity:            it.Quantity,
				Customizations:      string(custom),
				SpecialInstructions: it.SpecialInstructions,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the persisted cart. An empty database yields an empty snapshot.
func (s *SQLiteStore) Load() (Snapshot, error) {
	var records []itemRecord
	if err := s.db.Find(&records).Error; err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	for _, rec := range records {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			id = uuid.New()
		}
		price, err := decimal.NewFromString(rec.UnitPrice)
		if err != nil {
			return Snapshot{}, fmt.Errorf("corrupt unit price %q: %w", rec.UnitPrice, err)
		}
		var custom map[string]string
		if rec.Customizations != "" {
			if err := json.Unmarshal([]byte(rec.Customizations), &custom); err != nil {
				return Snapshot{}, fmt.Errorf("corrupt customizations: %w", err)
			}
		}
		snap.RestaurantID = rec.RestaurantID
		snap.RestaurantName = rec.RestaurantName
		snap.TableNumber = rec.TableNumber
		snap.Items = append(snap.Items, Item{
			ID:                  id,
			MenuItemID:          rec.MenuItemID,
			Name:                rec.Name,
			UnitPrice:           price,
			Quantity:            rec.Quantity,
			Customizations:      custom,
			SpecialInstructions: rec.SpecialInstructions,
		})
	}
	return snap, nil
}

// Clear drops every persisted line.
func (s *SQLiteStore) Clear() error {
	return s.db.Where("1 = 1").Delete(&itemRecord{}).Error
}
