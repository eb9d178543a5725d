package database

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm driver for the configured database.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "bizbox.db"
		}
		return sqlite.Open(path + "?_foreign_keys=on"), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

// Migrate creates or updates every table and seeds the default test types.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Organization{},
		&model.User{},
		&model.Year{},
		&model.TestType{},
		&model.Answer{},
		&model.Question{},
		&model.Subject{},
		&model.Test{},
		&model.TestResult{},
		&model.Contact{},
		&model.WAMessage{},
		&model.WAStatus{},
		&model.Notification{},
		&model.Product{},
		&model.Order{},
		&model.Post{},
		&model.Customer{},
	)
	if err != nil {
		return err
	}

	var count int64
	db.Model(&model.TestType{}).Count(&count)
	if count == 0 {
		defaults := []string{"Mock", "MidTerm", "Final", "Practice"}
		for _, name := range defaults {
			if err := db.Create(&model.TestType{Name: name}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
