package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/lapakku/internal/database"
	"github.com/example/lapakku/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func makeUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FirstName: "Test", LastName: "Seller", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func makeCategory(t *testing.T, db *gorm.DB, name string, parentID *uuid.UUID) *models.Category {
	t.Helper()
	catalog := NewCatalogService(db)
	category := &models.Category{Name: name, ParentID: parentID, IsActive: true}
	require.NoError(t, catalog.CreateCategory(category))
	return category
}

func validProduct(title string, categoryID uuid.UUID) *models.Product {
	return &models.Product{
		Title:            title,
		CategoryID:       categoryID,
		Condition:        models.ConditionGood,
		LocationCity:     "Jakarta",
		LocationProvince: "DKI Jakarta",
		Price:            decimal.NewFromInt(1500000),
		Currency:         "IDR",
		ContactName:      "Budi",
		ContactPhone:     "081234567890",
		Description:      "well kept, original parts",
		IsActive:         true,
	}
}

func makeProduct(t *testing.T, db *gorm.DB, title string, categoryID, sellerID uuid.UUID) *models.Product {
	t.Helper()
	catalog := NewCatalogService(db)
	product := validProduct(title, categoryID)
	require.NoError(t, catalog.CreateProduct(product, sellerID))
	return product
}
