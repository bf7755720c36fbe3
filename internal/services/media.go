package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/models"
)

// MediaService owns the per-product image collection: the image cap,
// the single-main-image invariant, and the fixed listing order.
type MediaService struct {
	db *gorm.DB
}

// NewMediaService constructs MediaService.
func NewMediaService(db *gorm.DB) *MediaService {
	return &MediaService{db: db}
}

// imageOrdering is the fixed three-key sort for image listings.
const imageOrdering = `"order" asc, is_main desc, created_at asc`

// AddImage attaches an image to a product. The write fails with
// ErrImageLimit once the product holds MaxProductImages rows. When
// isMain is set, sibling main flags are cleared and the new row is
// inserted inside the same transaction, so no interleaving can commit
// zero or two main images.
func (s *MediaService) AddImage(productID uuid.UUID, image *models.ProductImage) error {
	return s.addImage(s.db, productID, image)
}

func (s *MediaService) addImage(db *gorm.DB, productID uuid.UUID, image *models.ProductImage) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxProductImages {
			return ErrImageLimit
		}

		if image.IsMain {
			if err := tx.Model(&models.ProductImage{}).
				Where("product_id = ? AND is_main = ?", productID, true).
				Update("is_main", false).Error; err != nil {
				return err
			}
		}

		image.ProductID = productID
		return tx.Create(image).Error
	})
}

// AddImages inserts a batch alongside the enclosing transaction of a
// product create or update. All rows commit or none do.
func (s *MediaService) AddImages(tx *gorm.DB, productID uuid.UUID, images []*models.ProductImage) error {
	for _, image := range images {
		if err := s.addImage(tx, productID, image); err != nil {
			return err
		}
	}
	return nil
}

// ListImages returns a product's images by explicit order, then
// main-first, then creation time. The sort is not caller-overridable.
func (s *MediaService) ListImages(productID uuid.UUID) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := s.db.Where("product_id = ?", productID).Order(imageOrdering).Find(&images).Error
	return images, err
}

// MainImage returns the image flagged main, else the first by the fixed
// ordering, else nil.
func (s *MediaService) MainImage(productID uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	err := s.db.Where("product_id = ? AND is_main = ?", productID, true).First(&image).Error
	if err == nil {
		return &image, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.Where("product_id = ?", productID).Order(imageOrdering).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// SetMain flags one existing image as main, clearing its siblings in
// the same transaction.
func (s *MediaService) SetMain(productID, imageID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var image models.ProductImage
		if err := tx.First(&image, "id = ? AND product_id = ?", imageID, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&models.ProductImage{}).
			Where("product_id = ? AND is_main = ?", productID, true).
			Update("is_main", false).Error; err != nil {
			return err
		}
		return tx.Model(&image).Update("is_main", true).Error
	})
}

// DeleteImage removes one image from a product's collection.
func (s *MediaService) DeleteImage(productID, imageID uuid.UUID) error {
	result := s.db.Where("id = ? AND product_id = ?", imageID, productID).Delete(&models.ProductImage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
