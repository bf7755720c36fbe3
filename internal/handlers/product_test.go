package handlers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lapakku/internal/models"
	"github.com/example/lapakku/internal/services"
)

func TestCreateProductFromForm(t *testing.T) {
	app, db, cfg := newTestApp(t)
	_, token := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")

	status, body := doForm(t, app, fiber.MethodPost, "/api/products", token, url.Values{
		"title":             {"Yamaha NMAX 2021"},
		"category_id":       {category.ID.String()},
		"brand":             {"Yamaha"},
		"model":             {"NMAX"},
		"condition":         {"good"},
		"location_city":     {"Jakarta"},
		"location_province": {"DKI Jakarta"},
		"price":             {"28000000"},
		"contact_name":      {"Budi"},
		"contact_phone":     {"081234567890"},
		"description":       {"Kilometer rendah, servis rutin"},
		"attributes":        {`{"tahun":"2021","warna":"Hitam"}`},
	})
	require.Equal(t, fiber.StatusCreated, status)

	data := dataOf(t, body)
	assert.Equal(t, "yamaha-nmax-2021", data["slug"])
	assert.Equal(t, "Rp 28.000.000", data["formatted_price"])
	assert.Contains(t, data["whatsapp_link"], "wa.me/6281234567890")
	assert.Equal(t, "Motor", data["category"].(map[string]interface{})["name"])

	attrs := data["attributes"].(map[string]interface{})
	assert.Equal(t, "2021", attrs["tahun"])
}

func TestCreateProductValidation(t *testing.T) {
	app, db, cfg := newTestApp(t)
	_, token := makeUser(t, db, cfg, "seller@example.com")

	status, body := doForm(t, app, fiber.MethodPost, "/api/products", token, url.Values{
		"title": {"Bare"},
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	fields := body["errors"].(map[string]interface{})
	assert.Contains(t, fields, "category_id")
	assert.Contains(t, fields, "condition")
}

func TestCreateProductRequiresAuth(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, _ := doForm(t, app, fiber.MethodPost, "/api/products", "", url.Values{"title": {"X"}})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestMutationsAreOwnerOnly(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, _ := makeUser(t, db, cfg, "seller@example.com")
	_, strangerToken := makeUser(t, db, cfg, "stranger@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "Vario 160", category.ID, seller.ID)
	path := "/api/products/" + product.Slug

	status, _ := doJSON(t, app, fiber.MethodPut, path, strangerToken, fiber.Map{"brand": "Honda"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, fiber.MethodPost, path+"/mark_sold", strangerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, fiber.MethodDelete, path, strangerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	// Inquiring needs no account at all.
	status, body := doJSON(t, app, fiber.MethodPost, path+"/inquire", "", fiber.Map{
		"inquirer_name": "Sari",
		"message":       "Masih tersedia?",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "new", dataOf(t, body)["status"])
}

func TestUpdateProductPartial(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, token := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "Vario 160", category.ID, seller.ID)

	status, body := doJSON(t, app, fiber.MethodPatch, "/api/products/"+product.Slug, token, fiber.Map{
		"brand": "Honda",
		"price": "17500000",
	})
	require.Equal(t, fiber.StatusOK, status)
	data := dataOf(t, body)
	assert.Equal(t, "Honda", data["brand"])
	assert.Equal(t, "Rp 17.500.000", data["formatted_price"])
	// The slug survives edits.
	assert.Equal(t, product.Slug, data["slug"])
}

func TestUpdateProductMovesCategory(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, token := makeUser(t, db, cfg, "seller@example.com")
	motor := makeCategory(t, db, "Motor")
	mobil := makeCategory(t, db, "Mobil")
	product := makeProduct(t, db, "Vario 160", motor.ID, seller.ID)
	path := "/api/products/" + product.Slug

	status, body := doJSON(t, app, fiber.MethodPatch, path, token, fiber.Map{
		"category_id": mobil.ID.String(),
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Mobil", dataOf(t, body)["category"].(map[string]interface{})["name"])

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, mobil.ID, reloaded.CategoryID)

	status, body = doJSON(t, app, fiber.MethodPatch, path, token, fiber.Map{
		"category_id": uuid.New().String(),
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["errors"].(map[string]interface{}), "category_id")
}

func TestMarkSoldLifecycle(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, ownerToken := makeUser(t, db, cfg, "seller@example.com")
	_, strangerToken := makeUser(t, db, cfg, "stranger@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "Beat Street", category.ID, seller.ID)
	path := "/api/products/" + product.Slug

	status, _ := doJSON(t, app, fiber.MethodPost, path+"/mark_sold", ownerToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	// Gone from the public listing and from strangers' detail view.
	status, body := doJSON(t, app, fiber.MethodGet, "/api/products", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, slugsOf(t, body), product.Slug)

	status, _ = doJSON(t, app, fiber.MethodGet, path, strangerToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	// The seller still sees it.
	status, body = doJSON(t, app, fiber.MethodGet, path, ownerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, dataOf(t, body)["is_sold"])

	status, _ = doJSON(t, app, fiber.MethodPost, path+"/mark_available", ownerToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/products", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, slugsOf(t, body), product.Slug)
}

func TestDetailViewDeduped(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, _ := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "Aerox 155", category.ID, seller.ID)
	path := "/api/products/" + product.Slug

	get := func(session string) map[string]interface{} {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		if session != "" {
			req.Header.Set("X-Session-Key", session)
		}
		status, body := perform(t, app, req)
		require.Equal(t, fiber.StatusOK, status)
		return dataOf(t, body)
	}

	assert.EqualValues(t, 1, get("sess-1")["view_count"])
	assert.EqualValues(t, 1, get("sess-1")["view_count"])
	assert.EqualValues(t, 2, get("sess-2")["view_count"])
}

func TestGetProductNotFound(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodGet, "/api/products/no-such-slug", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestFeaturedEndpoint(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, _ := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")

	featured := makeProduct(t, db, "Featured NMAX", category.ID, seller.ID)
	require.NoError(t, db.Model(featured).Update("is_featured", true).Error)
	plain := makeProduct(t, db, "Plain NMAX", category.ID, seller.ID)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/products/featured", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	slugs := slugsOf(t, body)
	assert.Contains(t, slugs, featured.Slug)
	assert.NotContains(t, slugs, plain.Slug)
}

func TestMyProductsIncludesSold(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, token := makeUser(t, db, cfg, "seller@example.com")
	other, _ := makeUser(t, db, cfg, "other@example.com")
	category := makeCategory(t, db, "Motor")

	mine := makeProduct(t, db, "Mine", category.ID, seller.ID)
	sold := makeProduct(t, db, "Mine Sold", category.ID, seller.ID)
	require.NoError(t, services.NewCatalogService(db).SetSold(sold, seller.ID, true))
	makeProduct(t, db, "Theirs", category.ID, other.ID)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/products/my_products", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.ElementsMatch(t, []string{mine.Slug, sold.Slug}, slugsOf(t, body))
}

func TestListPaginationEnvelope(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, _ := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")
	for i := 0; i < 5; i++ {
		makeProduct(t, db, fmt.Sprintf("Item %d", i), category.ID, seller.ID)
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/api/products?page=1", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["current_page"])
	assert.EqualValues(t, 5, pagination["total_items"])
	assert.Equal(t, false, pagination["has_next"])
}

func TestImageUploadLifecycle(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, token := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "PCX 160", category.ID, seller.ID)
	path := "/api/products/" + product.Slug + "/images"

	status, body := uploadImage(t, app, path, token, "photo.jpg", map[string]string{"is_main": "true", "caption": "tampak depan"})
	require.Equal(t, fiber.StatusCreated, status)
	data := dataOf(t, body)
	assert.Equal(t, true, data["is_main"])
	assert.Equal(t, "tampak depan", data["caption"])
	imageURL := data["image"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "/uploads/products/"+product.Slug+"/"), imageURL)

	// Unsupported extension is rejected before anything is stored.
	status, body = uploadImage(t, app, path, token, "photo.gif", nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["errors"].(map[string]interface{}), "image")

	status, _ = doJSON(t, app, fiber.MethodDelete, path+"/"+data["id"].(string), token, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	var count int64
	require.NoError(t, db.Model(&models.ProductImage{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteImageKeepsBlobUntilRowGone(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, token := makeUser(t, db, cfg, "seller@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "NMAX", category.ID, seller.ID)
	other := makeProduct(t, db, "Aerox", category.ID, seller.ID)

	status, body := uploadImage(t, app, "/api/products/"+product.Slug+"/images", token, "photo.jpg", nil)
	require.Equal(t, fiber.StatusCreated, status)
	data := dataOf(t, body)
	imageID := data["id"].(string)
	diskPath := filepath.Join(cfg.UploadDir,
		filepath.FromSlash(strings.TrimPrefix(data["image"].(string), "/uploads/")))
	_, err := os.Stat(diskPath)
	require.NoError(t, err)

	// Deleting through the wrong product fails and must leave the blob.
	status, _ = doJSON(t, app, fiber.MethodDelete, "/api/products/"+other.Slug+"/images/"+imageID, token, nil)
	require.Equal(t, fiber.StatusNotFound, status)
	_, err = os.Stat(diskPath)
	assert.NoError(t, err)

	status, _ = doJSON(t, app, fiber.MethodDelete, "/api/products/"+product.Slug+"/images/"+imageID, token, nil)
	require.Equal(t, fiber.StatusNoContent, status)
	_, err = os.Stat(diskPath)
	assert.True(t, os.IsNotExist(err))
}

func TestImageUploadOwnerOnly(t *testing.T) {
	app, db, cfg := newTestApp(t)
	seller, _ := makeUser(t, db, cfg, "seller@example.com")
	_, strangerToken := makeUser(t, db, cfg, "stranger@example.com")
	category := makeCategory(t, db, "Motor")
	product := makeProduct(t, db, "XMax", category.ID, seller.ID)

	status, _ := uploadImage(t, app, "/api/products/"+product.Slug+"/images", strangerToken, "photo.jpg", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func uploadImage(t *testing.T, app *fiber.App, path, token, filename string, fields map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("not-a-real-image-but-bytes-enough"))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return perform(t, app, req)
}
