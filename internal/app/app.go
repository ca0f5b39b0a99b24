package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/auth"
	"github.com/stephencoan8/vestx/internal/config"
	"github.com/stephencoan8/vestx/internal/database"
	"github.com/stephencoan8/vestx/internal/grants"
	"github.com/stephencoan8/vestx/internal/health"
	"github.com/stephencoan8/vestx/internal/middleware"
	"github.com/stephencoan8/vestx/internal/portfolio"
	"github.com/stephencoan8/vestx/internal/prices"
	"github.com/stephencoan8/vestx/internal/settings"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns the DB and Redis handles so main can verify
// connectivity on startup.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis)
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no auth)
	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	// Auth (no auth middleware)
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		DB:         db,
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", authHandlers.Register)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// --- Protected modules (auth required) ---
	if db != nil {
		grantService := &grants.Service{DB: db}
		grantHandlers := &grants.Handlers{Service: grantService}
		grantGroup := app.Group("/api/v1/grants", middleware.RequireAuth())
		grantGroup.Post("/create-grant", grantHandlers.CreateGrant)
		grantGroup.Get("/get-grants", grantHandlers.ListGrants)
		grantGroup.Get("/get-grant/:grant_id", grantHandlers.GetGrant)
		grantGroup.Put("/edit-grant/:grant_id", grantHandlers.EditGrant)
		grantGroup.Delete("/delete-grant/:grant_id", grantHandlers.DeleteGrant)
		grantGroup.Patch("/record-withholding/:vest_id", grantHandlers.RecordWithholding)
		grantGroup.Post("/record-sale/:vest_id", grantHandlers.RecordSale)
		grantGroup.Get("/get-sales", grantHandlers.ListSales)
		grantGroup.Post("/record-exercise/:vest_id", grantHandlers.RecordExercise)
		grantGroup.Patch("/update-note/:vest_id", grantHandlers.UpdateNote)

		priceService := &prices.Service{DB: db}
		priceHandlers := &prices.Handlers{Service: priceService}
		priceGroup := app.Group("/api/v1/prices", middleware.RequireAuth())
		priceGroup.Post("/add-price", priceHandlers.AddPrice)
		priceGroup.Get("/get-prices", priceHandlers.ListPrices)
		priceGroup.Delete("/delete-price/:price_id", priceHandlers.DeletePrice)

		settingsService := &settings.Service{DB: db}
		settingsHandlers := &settings.Handlers{Service: settingsService}
		settingsGroup := app.Group("/api/v1/settings", middleware.RequireAuth())
		settingsGroup.Get("/tax-preference", settingsHandlers.GetPreference)
		settingsGroup.Put("/tax-preference", settingsHandlers.UpdatePreference)

		portfolioService := &portfolio.Service{DB: db}
		portfolioHandlers := &portfolio.Handlers{Service: portfolioService}
		portfolioGroup := app.Group("/api/v1/portfolio", middleware.RequireAuth())
		portfolioGroup.Get("/summary", portfolioHandlers.Summary)
		portfolioGroup.Get("/vest-detail/:vest_id", portfolioHandlers.VestDetail)
	}

	return app, db, rdb, nil
}
