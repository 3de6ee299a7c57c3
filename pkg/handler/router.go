package handler

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	rr "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/controllers"
	"github.com/mynaparrot/plugnmeet-translate/version"
)

type AppControllers struct {
	TranscriptController  *controllers.TranscriptController
	HealthCheckController *controllers.HealthCheckController
}

func Router(appCnf *config.AppConfig, ac *AppControllers) *fiber.App {
	cnf := fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		AppName:     "plugNmeet-translate version: " + version.Version,
	}
	if appCnf.Client.ProxyHeader != "" {
		cnf.ProxyHeader = appCnf.Client.ProxyHeader
	}

	app := fiber.New(cnf)

	if appCnf.Client.Debug {
		app.Use(logger.New())
	}
	if appCnf.Client.PrometheusConf.Enable {
		prometheus := fiberprometheus.New("plugNmeet-translate")
		prometheus.RegisterAt(app, appCnf.Client.PrometheusConf.MetricsPath)
		app.Use(prometheus.Middleware)
	}
	app.Use(rr.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "POST,GET,OPTIONS",
	}))

	app.Get("/healthCheck", ac.HealthCheckController.HandleHealthCheck)

	api := app.Group("/api")
	api.Get("/transcripts/:roomId", ac.TranscriptController.HandleListTranscripts)
	api.Get("/transcripts/:roomId/export", ac.TranscriptController.HandleExportTranscripts)

	return app
}
