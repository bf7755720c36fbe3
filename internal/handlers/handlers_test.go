package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/lapakku/internal/config"
	"github.com/example/lapakku/internal/database"
	"github.com/example/lapakku/internal/handlers"
	"github.com/example/lapakku/internal/models"
	"github.com/example/lapakku/internal/routes"
	"github.com/example/lapakku/internal/services"
	"github.com/example/lapakku/internal/storage"
	"github.com/example/lapakku/internal/utils"
)

// newTestApp builds the full route tree over an in-memory database and a
// throwaway upload directory. No redis client means no rate limiting.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		TokenExpires:  time.Hour,
		PageSize:      20,
		UploadDir:     t.TempDir(),
		UploadBaseURL: "/uploads",
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	store := storage.NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL)
	routes.Register(app, db, cfg, store, nil)

	return app, db, cfg
}

func makeUser(t *testing.T, db *gorm.DB, cfg *config.Config, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, FirstName: "Test", LastName: "Seller", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, cfg.TokenExpires)
	require.NoError(t, err)
	return user, token
}

func makeCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, IsActive: true}
	require.NoError(t, services.NewCatalogService(db).CreateCategory(category))
	return category
}

func makeProduct(t *testing.T, db *gorm.DB, title string, categoryID, sellerID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:            title,
		CategoryID:       categoryID,
		Condition:        models.ConditionGood,
		LocationCity:     "Jakarta",
		LocationProvince: "DKI Jakarta",
		Currency:         "IDR",
		ContactName:      "Budi",
		ContactPhone:     "081234567890",
		Description:      "well kept",
		IsActive:         true,
	}
	require.NoError(t, services.NewCatalogService(db).CreateProduct(product, sellerID))
	return product
}

// doJSON performs a request with an optional bearer token and JSON body,
// returning the status code and the decoded response body.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return perform(t, app, req)
}

// doForm posts urlencoded form fields, the shape browsers send for
// product creation without file uploads.
func doForm(t *testing.T, app *fiber.App, method, path, token string, fields url.Values) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return perform(t, app, req)
}

func perform(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func listOf(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := body["data"].([]interface{})
	require.True(t, ok, "response has no data list: %v", body)
	return data
}

func slugsOf(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	items := listOf(t, body)
	slugs := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		require.True(t, ok)
		slugs = append(slugs, entry["slug"].(string))
	}
	return slugs
}
