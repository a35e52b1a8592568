// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gmao/Models"
)

// NewDB opens a migrated in-memory sqlite database. A single connection keeps
// every goroutine on the same in-memory schema and serialises transactions.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Models.Migrate(db))
	return db
}

func Truck(t testing.TB, db *gorm.DB, siteID uint, plate string, mileage int64) *Models.Truck {
	t.Helper()
	truck := &Models.Truck{SiteID: siteID, PlateNumber: plate, Brand: "Volvo", ModelName: "FH16", Mileage: mileage}
	require.NoError(t, db.Create(truck).Error)
	return truck
}

func Equipment(t testing.TB, db *gorm.DB, siteID uint, code string) *Models.Equipment {
	t.Helper()
	eq := &Models.Equipment{SiteID: siteID, Code: code, Name: "Compressor " + code}
	require.NoError(t, db.Create(eq).Error)
	return eq
}

func User(t testing.TB, db *gorm.DB, siteID uint, name string) *Models.User {
	t.Helper()
	user := &Models.User{SiteID: siteID, Name: name, Email: name + "@example.com", Permission: Models.PermissionManager}
	require.NoError(t, db.Create(user).Error)
	return user
}

func Part(t testing.TB, db *gorm.DB, siteID uint, code string, price string, stock int64) *Models.Part {
	t.Helper()
	part := &Models.Part{
		SiteID:          siteID,
		Code:            code,
		Name:            "Part " + code,
		UnitPrice:       decimal.RequireFromString(price),
		QuantityInStock: stock,
	}
	require.NoError(t, db.Create(part).Error)
	return part
}

// InStock reads the stored quantity of a part.
func InStock(t testing.TB, db *gorm.DB, partID uint) int64 {
	t.Helper()
	var part Models.Part
	require.NoError(t, db.Select("id", "quantity_in_stock").First(&part, partID).Error)
	return part.QuantityInStock
}
