package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/middleware"
	"github.com/example/lapakku/internal/models"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the caller's profile, creating an empty one on
// first access. The get-or-create is explicit and idempotent.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var profile models.Profile
	if err := h.db.Where(models.Profile{UserID: userID}).
		FirstOrCreate(&profile).Error; err != nil {
		return err
	}

	if err := h.db.Preload("User").First(&profile, "id = ?", profile.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": profileResponse(&profile)})
}

type updateProfileRequest struct {
	PhoneNumber *string `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"`
	Bio         *string `json:"bio"`
	Website     *string `json:"website"`
	Location    *string `json:"location"`
}

// UpdateProfile updates the caller's profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var profile models.Profile
	if err := h.db.Where(models.Profile{UserID: userID}).
		FirstOrCreate(&profile).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			updates["date_of_birth"] = nil
		} else {
			parsed, err := time.Parse("2006-01-02", *req.DateOfBirth)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
			}
			updates["date_of_birth"] = parsed
		}
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}

	if len(updates) > 0 {
		if err := h.db.Model(&profile).Updates(updates).Error; err != nil {
			return err
		}
	}

	if err := h.db.Preload("User").First(&profile, "id = ?", profile.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": profileResponse(&profile)})
}

func profileResponse(profile *models.Profile) fiber.Map {
	resp := fiber.Map{
		"id":              profile.ID,
		"user_id":         profile.UserID,
		"phone_number":    profile.PhoneNumber,
		"date_of_birth":   profile.DateOfBirth,
		"profile_picture": profile.ProfilePicture,
		"bio":             profile.Bio,
		"website":         profile.Website,
		"location":        profile.Location,
		"is_verified":     profile.IsVerified,
		"display_name":    profile.DisplayName(),
		"created_at":      profile.CreatedAt,
		"updated_at":      profile.UpdatedAt,
	}
	if profile.User != nil {
		resp["email"] = profile.User.Email
		resp["full_name"] = profile.User.FullName()
	}
	return resp
}
