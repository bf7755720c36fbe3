package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/models"
)

// featuredLimit caps the featured listing regardless of pagination.
const featuredLimit = 20

// ProductFilters is the read-side filter set. All fields are optional
// and combine with AND; Search alone fans out as an OR of substring
// matches.
type ProductFilters struct {
	CategoryID   *uuid.UUID
	Condition    string
	Province     string
	Currency     string
	Negotiable   *bool
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Search       string
	ShowSold     bool
	OrderBy      string // "price" or "created_at"
	Descending   bool
}

// QueryService produces filtered, ordered, paginated product listings.
type QueryService struct {
	db *gorm.DB
}

// NewQueryService constructs QueryService.
func NewQueryService(db *gorm.DB) *QueryService {
	return &QueryService{db: db}
}

// Scope builds the base query for f. The default scope is active
// products only, with sold ones excluded unless ShowSold is set.
func (s *QueryService) Scope(f ProductFilters) *gorm.DB {
	query := s.db.Model(&models.Product{}).Where("is_active = ?", true)

	if !f.ShowSold {
		query = query.Where("is_sold = ?", false)
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.Condition != "" {
		query = query.Where("condition = ?", f.Condition)
	}
	if f.Province != "" {
		query = query.Where("location_province = ?", f.Province)
	}
	if f.Currency != "" {
		query = query.Where("currency = ?", f.Currency)
	}
	if f.Negotiable != nil {
		query = query.Where("is_negotiable = ?", *f.Negotiable)
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"lower(title) LIKE ? OR lower(brand) LIKE ? OR lower(model) LIKE ? OR lower(description) LIKE ? OR lower(location_city) LIKE ?",
			q, q, q, q, q,
		)
	}

	return query.Order(f.ordering())
}

func (f ProductFilters) ordering() string {
	direction := "asc"
	if f.Descending {
		direction = "desc"
	}
	switch f.OrderBy {
	case "price":
		return "price " + direction
	case "created_at":
		return "created_at " + direction
	default:
		return "is_featured desc, created_at desc"
	}
}

// List runs f with offset pagination and returns the page plus the
// total match count.
func (s *QueryService) List(f ProductFilters, limit, offset int) ([]models.Product, int64, error) {
	query := s.Scope(f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := query.Preload("Category").Preload("Images").
		Limit(limit).Offset(offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Featured returns up to 20 active, unsold, featured products newest
// first, ignoring pagination and all other filters.
func (s *QueryService) Featured() ([]models.Product, error) {
	var products []models.Product
	err := s.db.Where("is_active = ? AND is_sold = ? AND is_featured = ?", true, false, true).
		Order("created_at desc").
		Limit(featuredLimit).
		Preload("Category").Preload("Images").
		Find(&products).Error
	return products, err
}

// SellerProducts returns every product owned by sellerID regardless of
// active/sold state, newest first.
func (s *QueryService) SellerProducts(sellerID uuid.UUID, limit, offset int) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := query.Order("created_at desc").
		Preload("Category").Preload("Images").
		Limit(limit).Offset(offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
