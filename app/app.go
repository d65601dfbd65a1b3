package app

import (
	"fmt"

	"portfoliotracker/app/handler"
	"portfoliotracker/app/middleware"
	"portfoliotracker/internal/auth"
	"portfoliotracker/internal/db"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Tracker  Tracker
	Storage  *db.Storage
	Verifier auth.Verifier
	Screener handler.Screener
	Reviewer handler.Reviewer
}

type Tracker interface {
	handler.PortfolioBuilder
	handler.CredentialValidator
	handler.KeyManager
	handler.PriceFetcher
}

func NewApp(allowOrigins string, s Services) *fiber.App {

	app := fiber.New()

	middleware.SetupMiddleware(app, allowOrigins)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authHandler := handler.NewAuthHandler(s.Verifier, s.Storage)
	authHandler.InitRoute(app)
	guard := authHandler.AuthMiddleware

	handler.NewKrakenHandler(s.Tracker, s.Tracker, s.Tracker, guard).InitRoute(app)
	handler.NewAssetHandler(s.Storage, s.Storage, guard).InitRoute(app)
	handler.NewPortfolioHandler(s.Storage, s.Storage, guard).InitRoute(app)
	handler.NewAnalysisHandler(s.Storage, guard).InitRoute(app)
	handler.NewAIHandler(s.Screener, s.Reviewer, s.Storage, guard).InitRoute(app)
	handler.NewMarketHandler(s.Tracker).InitRoute(app)

	return app
}

func Run(port int, allowOrigins string, s Services) error {
	return NewApp(allowOrigins, s).Listen(fmt.Sprintf(":%d", port))
}
