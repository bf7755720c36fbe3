package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/models"
)

// TrackerService records de-duplicated product views and unconditional
// buyer inquiries.
type TrackerService struct {
	db *gorm.DB
}

// NewTrackerService constructs TrackerService.
func NewTrackerService(db *gorm.DB) *TrackerService {
	return &TrackerService{db: db}
}

// RecordView persists one view per (product, ip, session) triple. A
// repeat visit returns the existing row untouched: the stored
// user-agent and timestamp are never refreshed. Races on the same
// triple are settled by the unique index on the table.
func (s *TrackerService) RecordView(productID uuid.UUID, ip, sessionKey, userAgent string) (*models.ProductView, error) {
	if sessionKey == "" {
		sessionKey = "anonymous"
	}

	view := models.ProductView{
		ProductID:  productID,
		IPAddress:  ip,
		SessionKey: sessionKey,
	}
	err := s.db.Where(&models.ProductView{
		ProductID:  productID,
		IPAddress:  ip,
		SessionKey: sessionKey,
	}).Attrs(&models.ProductView{UserAgent: userAgent}).FirstOrCreate(&view).Error
	if err != nil {
		// A concurrent insert of the same triple trips the unique
		// index; the surviving row is the answer.
		var existing models.ProductView
		if lookupErr := s.db.Where(
			"product_id = ? AND ip_address = ? AND session_key = ?",
			productID, ip, sessionKey,
		).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &view, nil
}

// ViewCount returns the number of distinct recorded views for a product.
func (s *TrackerService) ViewCount(productID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.ProductView{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

// RecordInquiry always creates a new inquiry with status new. No rate
// limiting or spam filtering happens here.
func (s *TrackerService) RecordInquiry(productID uuid.UUID, inquiry *models.ProductInquiry) error {
	inquiry.ProductID = productID
	inquiry.Status = models.InquiryStatusNew
	return s.db.Create(inquiry).Error
}
