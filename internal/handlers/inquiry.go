package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/config"
	"github.com/example/lapakku/internal/middleware"
	"github.com/example/lapakku/internal/models"
	"github.com/example/lapakku/internal/utils"
)

// InquiryHandler manages inquiries scoped to the caller's own products.
type InquiryHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewInquiryHandler constructs InquiryHandler.
func NewInquiryHandler(db *gorm.DB, cfg *config.Config) *InquiryHandler {
	return &InquiryHandler{db: db, cfg: cfg}
}

// scope restricts the queryset to inquiries on products the caller sells.
func (h *InquiryHandler) scope(userID uuid.UUID) *gorm.DB {
	return h.db.Model(&models.ProductInquiry{}).
		Joins("JOIN products ON products.id = product_inquiries.product_id").
		Where("products.seller_id = ?", userID)
}

// ListInquiries returns inquiries for the caller's products, newest first.
func (h *InquiryHandler) ListInquiries(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c, h.cfg.PageSize)

	var total int64
	if err := h.scope(userID).Count(&total).Error; err != nil {
		return err
	}

	var inquiries []models.ProductInquiry
	if err := h.scope(userID).
		Order("product_inquiries.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Preload("Product").
		Find(&inquiries).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       inquiries,
		"pagination": pg.Envelope(total),
	})
}

// GetInquiry returns one inquiry if it targets a product the caller owns.
func (h *InquiryHandler) GetInquiry(c *fiber.Ctx) error {
	inquiry, err := h.findOwned(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": inquiry})
}

type inquiryUpdateRequest struct {
	Status  *string `json:"status"`
	Message *string `json:"message"`
}

// UpdateInquiry lets the seller move the inquiry between statuses. No
// transition protocol applies; any status may follow any other.
func (h *InquiryHandler) UpdateInquiry(c *fiber.Ctx) error {
	inquiry, err := h.findOwned(c)
	if err != nil {
		return err
	}

	var req inquiryUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		switch *req.Status {
		case models.InquiryStatusNew, models.InquiryStatusReplied, models.InquiryStatusClosed:
			updates["status"] = *req.Status
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be one of: new, replied, closed")
		}
	}
	if req.Message != nil {
		updates["message"] = *req.Message
	}

	if len(updates) > 0 {
		// A fresh model keeps the preloaded Product out of the SET clause.
		if err := h.db.Model(&models.ProductInquiry{}).
			Where("id = ?", inquiry.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := h.db.Preload("Product").First(inquiry, "id = ?", inquiry.ID).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": inquiry})
}

// DeleteInquiry removes one inquiry on the caller's product.
func (h *InquiryHandler) DeleteInquiry(c *fiber.Ctx) error {
	inquiry, err := h.findOwned(c)
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.ProductInquiry{}, "id = ?", inquiry.ID).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *InquiryHandler) findOwned(c *fiber.Ctx) (*models.ProductInquiry, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var inquiry models.ProductInquiry
	if err := h.db.Preload("Product").First(&inquiry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "inquiry not found")
		}
		return nil, err
	}

	if inquiry.Product == nil || inquiry.Product.SellerID != userID {
		// Hidden rather than forbidden: the caller should not learn the
		// inquiry exists.
		return nil, fiber.NewError(fiber.StatusNotFound, "inquiry not found")
	}

	return &inquiry, nil
}
