package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/config"
	"github.com/example/lapakku/internal/middleware"
	"github.com/example/lapakku/internal/models"
	"github.com/example/lapakku/internal/services"
	"github.com/example/lapakku/internal/storage"
	"github.com/example/lapakku/internal/utils"
)

// ProductHandler exposes the catalog API surface for products.
type ProductHandler struct {
	db      *gorm.DB
	catalog *services.CatalogService
	media   *services.MediaService
	tracker *services.TrackerService
	query   *services.QueryService
	store   *storage.LocalStorage
	cfg     *config.Config
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, catalog *services.CatalogService, media *services.MediaService,
	tracker *services.TrackerService, query *services.QueryService, store *storage.LocalStorage,
	cfg *config.Config) *ProductHandler {
	return &ProductHandler{db: db, catalog: catalog, media: media, tracker: tracker, query: query, store: store, cfg: cfg}
}

// ListProducts returns the filtered, paginated product listing.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	filters := services.ProductFilters{
		Condition: c.Query("condition"),
		Province:  c.Query("province"),
		Currency:  c.Query("currency"),
		Search:    c.Query("search"),
		ShowSold:  strings.EqualFold(c.Query("show_sold"), "true"),
	}

	if v := c.Query("category"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filters.CategoryID = &id
		}
	}
	if v := c.Query("negotiable"); v != "" {
		negotiable := strings.EqualFold(v, "true")
		filters.Negotiable = &negotiable
	}
	if min, ok := parseDecimalQuery(c, "min_price"); ok {
		filters.MinPrice = min
	}
	if max, ok := parseDecimalQuery(c, "max_price"); ok {
		filters.MaxPrice = max
	}
	if ordering := c.Query("ordering"); ordering != "" {
		filters.Descending = strings.HasPrefix(ordering, "-")
		filters.OrderBy = strings.TrimPrefix(ordering, "-")
	}

	pg := utils.ParsePagination(c, h.cfg.PageSize)
	products, total, err := h.query.List(filters, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       productList(products),
		"pagination": pg.Envelope(total),
	})
}

// Featured returns the top 20 featured active products, newest first.
func (h *ProductHandler) Featured(c *fiber.Ctx) error {
	products, err := h.query.Featured()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": productList(products)})
}

// MyProducts returns the caller's own products regardless of
// active/sold state.
func (h *ProductHandler) MyProducts(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c, h.cfg.PageSize)
	products, total, err := h.query.SellerProducts(userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       productList(products),
		"pagination": pg.Envelope(total),
	})
}

// GetProduct returns product detail and records a de-duplicated view.
// The default visibility scope hides inactive and sold products from
// everyone except their seller; show_sold=true widens it.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	callerID, authed := middleware.GetCurrentUserID(c)
	isOwner := authed && callerID == product.SellerID
	showSold := strings.EqualFold(c.Query("show_sold"), "true")
	if !isOwner {
		if !product.IsActive || (product.IsSold && !showSold) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
	}

	if _, err := h.tracker.RecordView(product.ID, clientIP(c), sessionKey(c), c.Get("User-Agent")); err != nil {
		return err
	}

	images, err := h.media.ListImages(product.ID)
	if err != nil {
		return err
	}
	viewCount, err := h.tracker.ViewCount(product.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": productDetail(product, images, viewCount)})
}

// CreateProduct creates a listing from a multipart form with up to 10
// image uploads. The first uploaded image becomes main. The product row
// and all image rows commit in one transaction; stored files are
// removed again when it rolls back.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := productFromForm(c)
	if err != nil {
		return err
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["images"]
	}
	if len(files) > models.MaxProductImages {
		return services.ErrImageLimit
	}

	var savedURLs []string
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if err := h.catalog.WithTx(tx).CreateProduct(product, userID); err != nil {
			return err
		}

		images := make([]*models.ProductImage, 0, len(files))
		for idx, file := range files {
			url, err := h.store.SaveProductImage(c, file, product.Slug)
			if err != nil {
				return services.NewValidationError("images", err.Error())
			}
			savedURLs = append(savedURLs, url)
			images = append(images, &models.ProductImage{
				Image:  url,
				Order:  idx,
				IsMain: idx == 0,
			})
		}
		return h.media.AddImages(tx, product.ID, images)
	})
	if txErr != nil {
		for _, url := range savedURLs {
			_ = h.store.Remove(url)
		}
		return txErr
	}

	images, err := h.media.ListImages(product.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    productDetail(product, images, 0),
	})
}

// UpdateProduct applies partial changes, owner only. The slug never
// changes once assigned.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	updates, err := productUpdates(c)
	if err != nil {
		return err
	}

	if err := h.catalog.UpdateProduct(product, userID, updates); err != nil {
		return err
	}

	images, err := h.media.ListImages(product.ID)
	if err != nil {
		return err
	}
	viewCount, err := h.tracker.ViewCount(product.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": productDetail(product, images, viewCount)})
}

// DeleteProduct removes a listing and its dependents, owner only.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	images, err := h.media.ListImages(product.ID)
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteProduct(product, userID); err != nil {
		return err
	}

	// Blob cleanup is best effort; the rows are already gone.
	for _, image := range images {
		_ = h.store.Remove(image.Image)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// MarkSold flips the listing to sold+inactive, owner only.
func (h *ProductHandler) MarkSold(c *fiber.Ctx) error {
	return h.setSold(c, true)
}

// MarkAvailable flips the listing back to available+active, owner only.
func (h *ProductHandler) MarkAvailable(c *fiber.Ctx) error {
	return h.setSold(c, false)
}

func (h *ProductHandler) setSold(c *fiber.Ctx, sold bool) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	if err := h.catalog.SetSold(product, userID, sold); err != nil {
		return err
	}

	detail := "product marked as available"
	if sold {
		detail = "product marked as sold"
	}
	return c.JSON(fiber.Map{"success": true, "detail": detail})
}

type inquiryRequest struct {
	InquirerName  string `json:"inquirer_name"`
	InquirerPhone string `json:"inquirer_phone"`
	InquirerEmail string `json:"inquirer_email"`
	Message       string `json:"message"`
}

// Inquire records a buyer inquiry. Open to everyone, authenticated or not.
func (h *ProductHandler) Inquire(c *fiber.Ctx) error {
	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	var req inquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	inquiry := models.ProductInquiry{
		InquirerName:  req.InquirerName,
		InquirerPhone: req.InquirerPhone,
		InquirerEmail: req.InquirerEmail,
		Message:       req.Message,
	}
	if err := h.tracker.RecordInquiry(product.ID, &inquiry); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": inquiry})
}

// AddImage attaches one more image to a listing, owner only. The cap
// and single-main invariants apply.
func (h *ProductHandler) AddImage(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}
	if product.SellerID != userID {
		return services.ErrPermissionDenied
	}

	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}

	url, err := h.store.SaveProductImage(c, file, product.Slug)
	if err != nil {
		return services.NewValidationError("image", err.Error())
	}

	image := models.ProductImage{
		Image:   url,
		Caption: c.FormValue("caption"),
		IsMain:  strings.EqualFold(c.FormValue("is_main"), "true"),
	}
	if order, err := strconv.Atoi(c.FormValue("order")); err == nil {
		image.Order = order
	}

	if err := h.media.AddImage(product.ID, &image); err != nil {
		_ = h.store.Remove(url)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": imageResponse(&image)})
}

// DeleteImage removes one image from a listing, owner only.
func (h *ProductHandler) DeleteImage(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}
	if product.SellerID != userID {
		return services.ErrPermissionDenied
	}

	imageID, err := uuid.Parse(c.Params("imageID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid image id")
	}

	var image models.ProductImage
	found := h.db.First(&image, "id = ? AND product_id = ?", imageID, product.ID).Error == nil

	if err := h.media.DeleteImage(product.ID, imageID); err != nil {
		return err
	}

	// Only drop the blob once the row is gone; a failed delete must not
	// leave a row pointing at nothing.
	if found {
		_ = h.store.Remove(image.Image)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) findBySlug(slug string) (*models.Product, error) {
	var product models.Product
	if err := h.db.Preload("Category").Preload("Seller").First(&product, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// productFromForm builds a Product from multipart or urlencoded form
// fields. Validation happens in the catalog service.
func productFromForm(c *fiber.Ctx) (*models.Product, error) {
	product := &models.Product{
		Title:            c.FormValue("title"),
		Brand:            c.FormValue("brand"),
		Model:            c.FormValue("model"),
		Condition:        c.FormValue("condition"),
		LocationCity:     c.FormValue("location_city"),
		LocationProvince: c.FormValue("location_province"),
		LocationDetail:   c.FormValue("location_detail"),
		Currency:         strings.ToUpper(c.FormValue("currency", "IDR")),
		ContactName:      c.FormValue("contact_name"),
		ContactPhone:     c.FormValue("contact_phone"),
		ContactEmail:     c.FormValue("contact_email"),
		Description:      c.FormValue("description"),
		MetaTitle:        c.FormValue("meta_title"),
		MetaDescription:  c.FormValue("meta_description"),
		IsActive:         true,
		IsNegotiable:     true,
	}

	if v := c.FormValue("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
		}
		product.CategoryID = id
	}
	if v := c.FormValue("price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return nil, services.NewValidationError("price", "price must be a decimal number")
		}
		product.Price = price
	}
	if v := c.FormValue("is_negotiable"); v != "" {
		product.IsNegotiable = strings.EqualFold(v, "true")
	}
	if v := c.FormValue("attributes"); v != "" {
		var attrs datatypes.JSONMap
		if err := json.Unmarshal([]byte(v), &attrs); err != nil {
			return nil, services.NewValidationError("attributes", "attributes must be a JSON object")
		}
		product.Attributes = attrs
	}

	return product, nil
}

type productUpdateRequest struct {
	Title            *string            `json:"title"`
	CategoryID       *string            `json:"category_id"`
	Brand            *string            `json:"brand"`
	Model            *string            `json:"model"`
	Condition        *string            `json:"condition"`
	Attributes       *datatypes.JSONMap `json:"attributes"`
	LocationCity     *string            `json:"location_city"`
	LocationProvince *string            `json:"location_province"`
	LocationDetail   *string            `json:"location_detail"`
	Price            *string            `json:"price"`
	Currency         *string            `json:"currency"`
	IsNegotiable     *bool              `json:"is_negotiable"`
	ContactName      *string            `json:"contact_name"`
	ContactPhone     *string            `json:"contact_phone"`
	ContactEmail     *string            `json:"contact_email"`
	Description      *string            `json:"description"`
	IsFeatured       *bool              `json:"is_featured"`
	MetaTitle        *string            `json:"meta_title"`
	MetaDescription  *string            `json:"meta_description"`
}

func productUpdates(c *fiber.Ctx) (map[string]interface{}, error) {
	var req productUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	setString := func(key string, v *string) {
		if v != nil {
			updates[key] = *v
		}
	}
	setString("title", req.Title)
	setString("brand", req.Brand)
	setString("model", req.Model)
	setString("condition", req.Condition)
	setString("location_city", req.LocationCity)
	setString("location_province", req.LocationProvince)
	setString("location_detail", req.LocationDetail)
	setString("contact_name", req.ContactName)
	setString("contact_phone", req.ContactPhone)
	setString("contact_email", req.ContactEmail)
	setString("description", req.Description)
	setString("meta_title", req.MetaTitle)
	setString("meta_description", req.MetaDescription)

	if req.CategoryID != nil {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
		}
		updates["category_id"] = id
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return nil, services.NewValidationError("price", "price must be a decimal number")
		}
		if price.IsNegative() {
			return nil, services.NewValidationError("price", "price must not be negative")
		}
		updates["price"] = price
	}
	if req.Currency != nil {
		updates["currency"] = strings.ToUpper(*req.Currency)
	}
	if req.IsNegotiable != nil {
		updates["is_negotiable"] = *req.IsNegotiable
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.Attributes != nil {
		updates["attributes"] = *req.Attributes
	}

	return updates, nil
}

// clientIP honors X-Forwarded-For when a proxy set it.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if comma := strings.Index(fwd, ","); comma >= 0 {
			return strings.TrimSpace(fwd[:comma])
		}
		return strings.TrimSpace(fwd)
	}
	return c.IP()
}

// sessionKey reads the visitor session from cookie or header; the
// tracker substitutes "anonymous" when neither exists.
func sessionKey(c *fiber.Ctx) string {
	if v := c.Cookies("session_key"); v != "" {
		return v
	}
	return c.Get("X-Session-Key")
}
