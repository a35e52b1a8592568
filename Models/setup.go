package Models

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Dialector picks the gorm driver for the configured database.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Connect opens the database, migrates the schema and stores the handle in DB.
func Connect(driver, dsn string, debug bool) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	connection, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}

	DB = connection
	log.WithField("driver", driver).Info("database connected")
	return connection, nil
}

// Migrate creates or updates every table, ordered by dependency.
func Migrate(db *gorm.DB) error {
	// 1. Models without foreign keys
	if err := db.AutoMigrate(
		&Site{},
		&User{},
		&Equipment{},
		&Truck{},
		&Part{},
	); err != nil {
		return fmt.Errorf("migrating base tables: %w", err)
	}

	// 2. Plans and their children
	if err := db.AutoMigrate(
		&MaintenancePlan{},
		&PlanTask{},
	); err != nil {
		return fmt.Errorf("migrating plan tables: %w", err)
	}

	// 3. Work orders, then everything that points at them
	if err := db.AutoMigrate(
		&WorkOrder{},
		&WorkOrderPart{},
		&WorkOrderHistory{},
		&WorkOrderComment{},
		&MaintenanceLog{},
		&StockMovement{},
		&Notification{},
	); err != nil {
		return fmt.Errorf("migrating work order tables: %w", err)
	}

	return nil
}
