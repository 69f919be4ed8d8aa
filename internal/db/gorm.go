package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gowenong/where-in-the-world/internal/config"
)

type (
	// GormForkedModel is gorm.Model with a uint64 key and without soft
	// deletes; orphaned rows are removed for real, not flagged.
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Person struct {
		GormForkedModel
		Name             string `gorm:"not null"`
		Country          *string
		City             *string
		IsStarred        bool `gorm:"not null;default:false"`
		CountryCityID    *uint64
		CountryCity      *CountryCity
		Tags             []Tag             `gorm:"many2many:person_tags;"`
		VisitedLocations []VisitedLocation `gorm:"many2many:person_locations;"`
	}

	Tag struct {
		GormForkedModel
		Name    string   `gorm:"not null;uniqueIndex"`
		Persons []Person `gorm:"many2many:person_tags;"`
	}

	VisitedLocation struct {
		GormForkedModel
		Name    string   `gorm:"not null;uniqueIndex"`
		Persons []Person `gorm:"many2many:person_locations;"`
	}

	// CountryCity is the normalized (country, city) pair. A person with
	// only one of the two keeps plain scalar fields and no pair row.
	CountryCity struct {
		GormForkedModel
		Country string `gorm:"not null;uniqueIndex:uidx_country_city"`
		City    string `gorm:"not null;uniqueIndex:uidx_country_city"`
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate is separate from NewGormClient so tests can run the same
// schema against another driver.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&CountryCity{}); err != nil {
		return errors.Wrap(err, "migrate country city")
	}
	if err := db.AutoMigrate(&Person{}); err != nil {
		return errors.Wrap(err, "migrate person")
	}
	if err := db.AutoMigrate(&Tag{}); err != nil {
		return errors.Wrap(err, "migrate tag")
	}
	if err := db.AutoMigrate(&VisitedLocation{}); err != nil {
		return errors.Wrap(err, "migrate visited location")
	}
	return nil
}
