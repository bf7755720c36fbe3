package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters. The page size is a fixed
// server-side value; callers only choose the page.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads the page query param; limit comes from config.
func ParsePagination(c *fiber.Ctx, pageSize int) Pagination {
	page := parseInt(c.Query("page", "1"), 1)
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	return Pagination{
		Page:   page,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
}

// Envelope renders the pagination block of a list response, including
// next/previous page indicators.
func (p Pagination) Envelope(total int64) fiber.Map {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return fiber.Map{
		"current_page":   p.Page,
		"items_per_page": p.Limit,
		"total_items":    total,
		"total_pages":    totalPages,
		"has_next":       p.Page < totalPages,
		"has_previous":   p.Page > 1,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
