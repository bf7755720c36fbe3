package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/lapakku/internal/config"
	"github.com/example/lapakku/internal/handlers"
	"github.com/example/lapakku/internal/middleware"
	"github.com/example/lapakku/internal/services"
	"github.com/example/lapakku/internal/storage"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, store *storage.LocalStorage, redisClient *redis.Client) {
	catalog := services.NewCatalogService(db)
	media := services.NewMediaService(db)
	tracker := services.NewTrackerService(db)
	query := services.NewQueryService(db)

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db)
	categoryHandler := handlers.NewCategoryHandler(db, catalog, query, cfg)
	productHandler := handlers.NewProductHandler(db, catalog, media, tracker, query, store, cfg)
	inquiryHandler := handlers.NewInquiryHandler(db, cfg)

	requireAuth := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg)
	rateLimit := middleware.RateLimiter(redisClient)

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "message": "API is running successfully"})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", rateLimit, authHandler.Register)
	auth.Post("/login", rateLimit, authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Profile routes
	api.Get("/profile", requireAuth, profileHandler.GetProfile)
	api.Put("/profile", requireAuth, profileHandler.UpdateProfile)

	// Categories: public reads, authenticated management
	categories := api.Group("/categories")
	categories.Get("/", categoryHandler.ListCategories)
	categories.Post("/", requireAuth, categoryHandler.CreateCategory)
	categories.Get("/:slug", categoryHandler.GetCategory)
	categories.Get("/:slug/products", categoryHandler.CategoryProducts)
	categories.Put("/:slug", requireAuth, categoryHandler.UpdateCategory)
	categories.Delete("/:slug", requireAuth, categoryHandler.DeleteCategory)

	// Products. Fixed paths register before the slug wildcard.
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/featured", productHandler.Featured)
	products.Get("/my_products", requireAuth, productHandler.MyProducts)
	products.Post("/", requireAuth, productHandler.CreateProduct)
	products.Get("/:slug", optionalAuth, productHandler.GetProduct)
	products.Put("/:slug", requireAuth, productHandler.UpdateProduct)
	products.Patch("/:slug", requireAuth, productHandler.UpdateProduct)
	products.Delete("/:slug", requireAuth, productHandler.DeleteProduct)
	products.Post("/:slug/mark_sold", requireAuth, productHandler.MarkSold)
	products.Post("/:slug/mark_available", requireAuth, productHandler.MarkAvailable)
	products.Post("/:slug/inquire", productHandler.Inquire)
	products.Post("/:slug/images", requireAuth, productHandler.AddImage)
	products.Delete("/:slug/images/:imageID", requireAuth, productHandler.DeleteImage)

	// Inquiry management, scoped to the caller's own products
	inquiries := api.Group("/inquiries", requireAuth)
	inquiries.Get("/", inquiryHandler.ListInquiries)
	inquiries.Get("/:id", inquiryHandler.GetInquiry)
	inquiries.Put("/:id", inquiryHandler.UpdateInquiry)
	inquiries.Patch("/:id", inquiryHandler.UpdateInquiry)
	inquiries.Delete("/:id", inquiryHandler.DeleteInquiry)
}
