package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/lapakku/internal/models"
)

// productList renders the compact listing shape for each product.
func productList(products []models.Product) []fiber.Map {
	items := make([]fiber.Map, 0, len(products))
	for i := range products {
		items = append(items, productListItem(&products[i]))
	}
	return items
}

func productListItem(p *models.Product) fiber.Map {
	item := fiber.Map{
		"id":                p.ID,
		"title":             p.Title,
		"slug":              p.Slug,
		"brand":             p.Brand,
		"model":             p.Model,
		"condition":         p.Condition,
		"price":             p.Price,
		"formatted_price":   p.FormattedPrice(),
		"currency":          p.Currency,
		"is_negotiable":     p.IsNegotiable,
		"location_city":     p.LocationCity,
		"location_province": p.LocationProvince,
		"is_featured":       p.IsFeatured,
		"is_sold":           p.IsSold,
		"created_at":        p.CreatedAt,
	}
	if p.Category != nil {
		item["category_name"] = p.Category.Name
	}
	if main := mainImageOf(p.Images); main != nil {
		item["main_image"] = imageResponse(main)
	}
	return item
}

// productDetail renders the full shape including contact fields, the
// WhatsApp deep link, and the view count.
func productDetail(p *models.Product, images []models.ProductImage, viewCount int64) fiber.Map {
	item := fiber.Map{
		"id":                p.ID,
		"title":             p.Title,
		"slug":              p.Slug,
		"brand":             p.Brand,
		"model":             p.Model,
		"condition":         p.Condition,
		"attributes":        p.Attributes,
		"price":             p.Price,
		"formatted_price":   p.FormattedPrice(),
		"currency":          p.Currency,
		"is_negotiable":     p.IsNegotiable,
		"location_city":     p.LocationCity,
		"location_province": p.LocationProvince,
		"location_detail":   p.LocationDetail,
		"contact_name":      p.ContactName,
		"contact_phone":     p.ContactPhone,
		"contact_email":     p.ContactEmail,
		"whatsapp_link":     p.WhatsAppLink(),
		"description":       p.Description,
		"is_active":         p.IsActive,
		"is_featured":       p.IsFeatured,
		"is_sold":           p.IsSold,
		"view_count":        viewCount,
		"images":            imagesResponse(images),
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}
	if p.Category != nil {
		item["category"] = fiber.Map{
			"id":   p.Category.ID,
			"name": p.Category.Name,
			"slug": p.Category.Slug,
		}
	}
	if p.Seller != nil {
		item["seller_name"] = p.Seller.FullName()
	}
	return item
}

func imagesResponse(images []models.ProductImage) []fiber.Map {
	out := make([]fiber.Map, 0, len(images))
	for i := range images {
		out = append(out, imageResponse(&images[i]))
	}
	return out
}

func imageResponse(image *models.ProductImage) fiber.Map {
	return fiber.Map{
		"id":         image.ID,
		"image":      image.Image,
		"caption":    image.Caption,
		"is_main":    image.IsMain,
		"order":      image.Order,
		"created_at": image.CreatedAt,
	}
}

// mainImageOf picks the main-flagged image, else the first by the
// fixed ordering, from an already-loaded slice.
func mainImageOf(images []models.ProductImage) *models.ProductImage {
	if len(images) == 0 {
		return nil
	}
	best := &images[0]
	for i := range images {
		img := &images[i]
		if img.IsMain {
			return img
		}
		if img.Order < best.Order || (img.Order == best.Order && img.CreatedAt.Before(best.CreatedAt)) {
			best = img
		}
	}
	return best
}

func parseDecimalQuery(c *fiber.Ctx, name string) (*decimal.Decimal, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
