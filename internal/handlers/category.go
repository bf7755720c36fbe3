package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/config"
	"github.com/example/lapakku/internal/models"
	"github.com/example/lapakku/internal/services"
	"github.com/example/lapakku/internal/utils"
)

// CategoryHandler exposes public category reads and authenticated
// category management.
type CategoryHandler struct {
	db      *gorm.DB
	catalog *services.CatalogService
	query   *services.QueryService
	cfg     *config.Config
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(db *gorm.DB, catalog *services.CatalogService, query *services.QueryService, cfg *config.Config) *CategoryHandler {
	return &CategoryHandler{db: db, catalog: catalog, query: query, cfg: cfg}
}

// ListCategories returns active categories ordered by sort order then name.
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.Where("is_active = ?", true).
		Order("sort_order asc, name asc").
		Preload("Parent").
		Find(&categories).Error; err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(categories))
	for i := range categories {
		item, err := h.categoryResponse(&categories[i])
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

// GetCategory returns a single category by slug.
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	category, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	item, err := h.categoryResponse(category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

// CategoryProducts lists active, unsold products in one category with
// optional search and price range filters.
func (h *CategoryHandler) CategoryProducts(c *fiber.Ctx) error {
	category, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	filters := services.ProductFilters{
		CategoryID: &category.ID,
		Search:     c.Query("search"),
	}
	if min, ok := parseDecimalQuery(c, "min_price"); ok {
		filters.MinPrice = min
	}
	if max, ok := parseDecimalQuery(c, "max_price"); ok {
		filters.MaxPrice = max
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

type categoryRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Image           string  `json:"image"`
	Icon            string  `json:"icon"`
	Color           string  `json:"color"`
	ParentID        *string `json:"parent_id"`
	IsActive        *bool   `json:"is_active"`
	IsFeatured      *bool   `json:"is_featured"`
	SortOrder       *int    `json:"sort_order"`
	MetaTitle       string  `json:"meta_title"`
	MetaDescription string  `json:"meta_description"`
}

// CreateCategory persists a new category.
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	category := models.Category{
		Name:            req.Name,
		Description:     req.Description,
		Image:           req.Image,
		Icon:            req.Icon,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		IsActive:        true,
	}
	if req.Color != "" {
		category.Color = req.Color
	}
	if req.ParentID != nil && *req.ParentID != "" {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid parent_id")
		}
		category.ParentID = &parentID
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		category.IsFeatured = *req.IsFeatured
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}

	if err := h.catalog.CreateCategory(&category); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

type categoryUpdateRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Image           *string `json:"image"`
	Icon            *string `json:"icon"`
	Color           *string `json:"color"`
	ParentID        *string `json:"parent_id"`
	IsActive        *bool   `json:"is_active"`
	IsFeatured      *bool   `json:"is_featured"`
	SortOrder       *int    `json:"sort_order"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
}

// UpdateCategory applies partial changes to an existing category.
// Pointer fields distinguish "absent" from "set to empty", so a set
// description or icon can be cleared again. The slug is never
// recomputed.
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	category, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	var req categoryUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = *req.Name
	}
	setString := func(key string, v *string) {
		if v != nil {
			updates[key] = *v
		}
	}
	setString("description", req.Description)
	setString("image", req.Image)
	setString("icon", req.Icon)
	setString("color", req.Color)
	setString("meta_title", req.MetaTitle)
	setString("meta_description", req.MetaDescription)
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			updates["parent_id"] = nil
		} else {
			parentID, err := uuid.Parse(*req.ParentID)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid parent_id")
			}
			updates["parent_id"] = parentID
		}
	}

	if err := h.catalog.UpdateCategory(category, updates); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory cascades to descendant categories and their products.
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	category, err := h.findBySlug(c.Params("slug"))
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteCategory(category.ID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CategoryHandler) findBySlug(slug string) (*models.Category, error) {
	var category models.Category
	if err := h.db.Preload("Parent").First(&category, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return nil, err
	}
	return &category, nil
}

func (h *CategoryHandler) categoryResponse(category *models.Category) (fiber.Map, error) {
	var productCount int64
	if err := h.db.Model(&models.Product{}).
		Where("category_id = ?", category.ID).
		Count(&productCount).Error; err != nil {
		return nil, err
	}

	return fiber.Map{
		"id":               category.ID,
		"name":             category.Name,
		"slug":             category.Slug,
		"description":      category.Description,
		"image":            category.Image,
		"icon":             category.Icon,
		"color":            category.Color,
		"parent_id":        category.ParentID,
		"is_active":        category.IsActive,
		"is_featured":      category.IsFeatured,
		"sort_order":       category.SortOrder,
		"product_count":    productCount,
		"full_path":        category.FullPath(),
		"meta_title":       category.MetaTitle,
		"meta_description": category.MetaDescription,
		"created_at":       category.CreatedAt,
		"updated_at":       category.UpdatedAt,
	}, nil
}
