package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/models"
)

// CatalogService owns category and product persistence together with
// the slug and hierarchy invariants.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// WithTx returns a CatalogService bound to tx so callers can compose
// catalog writes into a wider transaction.
func (s *CatalogService) WithTx(tx *gorm.DB) *CatalogService {
	return &CatalogService{db: tx}
}

// UniqueSlug derives a URL-safe slug from name and disambiguates
// collisions against model's table by appending -1, -2, ... until free.
func UniqueSlug(tx *gorm.DB, model interface{}, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "item"
	}

	candidate := base
	for counter := 1; ; counter++ {
		var count int64
		if err := tx.Model(model).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

// CreateCategory persists a category, rejecting duplicate names and
// deriving the slug once at creation time.
func (s *CatalogService) CreateCategory(category *models.Category) error {
	var count int64
	if err := s.db.Model(&models.Category{}).Where("name = ?", category.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("name", "category with this name already exists")
	}

	if category.ParentID != nil {
		var parent models.Category
		if err := s.db.First(&parent, "id = ?", *category.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidationError("parent_id", "parent category does not exist")
			}
			return err
		}
	}

	generated, err := UniqueSlug(s.db, &models.Category{}, category.Name)
	if err != nil {
		return err
	}
	category.Slug = generated

	return s.db.Create(category).Error
}

// UpdateCategory applies changes without recomputing the slug.
func (s *CatalogService) UpdateCategory(category *models.Category, updates map[string]interface{}) error {
	delete(updates, "slug")
	if name, ok := updates["name"].(string); ok && name != category.Name {
		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("name = ? AND id <> ?", name, category.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return NewValidationError("name", "category with this name already exists")
		}
	}
	if raw, ok := updates["parent_id"]; ok && raw != nil {
		parentID, _ := raw.(uuid.UUID)
		if parentID == category.ID {
			return NewValidationError("parent_id", "category cannot be its own parent")
		}
		var parent models.Category
		if err := s.db.First(&parent, "id = ?", parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidationError("parent_id", "parent category does not exist")
			}
			return err
		}
	}
	if len(updates) == 0 {
		return nil
	}

	// The update runs against a fresh model: a Parent preloaded on the
	// struct would fold its ID back into the SET clause.
	if err := s.db.Model(&models.Category{}).Where("id = ?", category.ID).Updates(updates).Error; err != nil {
		return err
	}
	return s.db.Preload("Parent").First(category, "id = ?", category.ID).Error
}

// DescendantIDs walks the parent links iteratively and returns the IDs
// of every category below root, excluding root itself.
func (s *CatalogService) DescendantIDs(rootID uuid.UUID) ([]uuid.UUID, error) {
	var all []uuid.UUID
	frontier := []uuid.UUID{rootID}

	for len(frontier) > 0 {
		var children []models.Category
		if err := s.db.Select("id").Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range children {
			all = append(all, child.ID)
			frontier = append(frontier, child.ID)
		}
	}
	return all, nil
}

// DeleteCategory cascades: descendant categories, products in any of
// them, and the products' images, views, and inquiries all go in one
// transaction.
func (s *CatalogService) DeleteCategory(id uuid.UUID) error {
	descendants, err := s.DescendantIDs(id)
	if err != nil {
		return err
	}
	categoryIDs := append([]uuid.UUID{id}, descendants...)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var productIDs []uuid.UUID
		if err := tx.Model(&models.Product{}).
			Where("category_id IN ?", categoryIDs).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.ProductView{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.ProductInquiry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}

		return tx.Where("id IN ?", categoryIDs).Delete(&models.Category{}).Error
	})
}

// CreateProduct validates required fields, derives a unique slug from
// the title, and persists the product owned by sellerID.
func (s *CatalogService) CreateProduct(product *models.Product, sellerID uuid.UUID) error {
	if err := s.validateProduct(product); err != nil {
		return err
	}

	var category models.Category
	if err := s.db.First(&category, "id = ?", product.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewValidationError("category_id", "category does not exist")
		}
		return err
	}

	generated, err := UniqueSlug(s.db, &models.Product{}, product.Title)
	if err != nil {
		return err
	}
	product.Slug = generated
	product.SellerID = sellerID

	if err := s.db.Create(product).Error; err != nil {
		return err
	}
	product.Category = &category
	return nil
}

// UpdateProduct applies updates to a product after checking that the
// caller owns it. The slug is never recomputed; a category move is
// validated against the categories table like on create.
func (s *CatalogService) UpdateProduct(product *models.Product, callerID uuid.UUID, updates map[string]interface{}) error {
	if product.SellerID != callerID {
		return ErrPermissionDenied
	}
	delete(updates, "slug")
	delete(updates, "seller_id")
	if condition, ok := updates["condition"].(string); ok && !models.ValidCondition(condition) {
		return NewValidationError("condition", "invalid condition value")
	}
	if raw, ok := updates["category_id"]; ok {
		categoryID, _ := raw.(uuid.UUID)
		var category models.Category
		if err := s.db.First(&category, "id = ?", categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewValidationError("category_id", "category does not exist")
			}
			return err
		}
	}
	if len(updates) == 0 {
		return nil
	}

	// The update runs against a fresh model: a Category preloaded on the
	// struct would fold its ID back into the SET clause and silently
	// undo a category move.
	if err := s.db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return err
	}
	return s.db.Preload("Category").Preload("Seller").First(product, "id = ?", product.ID).Error
}

// DeleteProduct removes the product and its dependents in one
// transaction, owner only.
func (s *CatalogService) DeleteProduct(product *models.Product, callerID uuid.UUID) error {
	if product.SellerID != callerID {
		return ErrPermissionDenied
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductInquiry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", product.ID).Error
	})
}

// SetSold flips the sold/active pair together in a single update so the
// two flags always move as one.
func (s *CatalogService) SetSold(product *models.Product, callerID uuid.UUID, sold bool) error {
	if product.SellerID != callerID {
		return ErrPermissionDenied
	}

	updates := map[string]interface{}{"is_sold": sold, "is_active": !sold}
	if err := s.db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return err
	}
	product.IsSold = sold
	product.IsActive = !sold
	return nil
}

func (s *CatalogService) validateProduct(product *models.Product) error {
	fields := map[string]string{}
	if product.Title == "" {
		fields["title"] = "title is required"
	}
	if product.CategoryID == uuid.Nil {
		fields["category_id"] = "category is required"
	}
	if !models.ValidCondition(product.Condition) {
		fields["condition"] = "condition must be one of: new, like_new, good, fair, poor"
	}
	if product.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if product.LocationCity == "" {
		fields["location_city"] = "city is required"
	}
	if product.LocationProvince == "" {
		fields["location_province"] = "province is required"
	}
	if product.ContactName == "" {
		fields["contact_name"] = "contact name is required"
	}
	if product.ContactPhone == "" {
		fields["contact_phone"] = "contact phone is required"
	}
	if product.Description == "" {
		fields["description"] = "description is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
