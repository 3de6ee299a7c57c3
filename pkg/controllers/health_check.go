package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
)

type HealthCheckController struct {
	app *config.AppConfig
}

func NewHealthCheckController(app *config.AppConfig) *HealthCheckController {
	return &HealthCheckController{
		app: app,
	}
}

// HandleHealthCheck verifies the store and cache connections are alive.
func (hc *HealthCheckController) HandleHealthCheck(c *fiber.Ctx) error {
	if hc.app.ORM != nil {
		db, err := hc.app.ORM.DB()
		if err == nil {
			err = db.Ping()
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("database connection unhealthy")
		}
	}

	if hc.app.RDS != nil {
		if err := hc.app.RDS.Ping(c.Context()).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("redis connection unhealthy")
		}
	}

	return c.SendString("OK")
}
