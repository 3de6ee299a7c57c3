package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mynaparrot/plugnmeet-translate/helpers"
	"github.com/mynaparrot/plugnmeet-translate/pkg/capture"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/controllers"
	"github.com/mynaparrot/plugnmeet-translate/pkg/handler"
	"github.com/mynaparrot/plugnmeet-translate/pkg/models"
	dbservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/db"
	natsservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/nats"
	redisservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/redis"
	log "github.com/sirupsen/logrus"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file")
	flag.Parse()

	appCnf, err := helpers.ReadYamlConfigFile(*configFile)
	if err != nil {
		log.Fatalln(err)
	}

	appCnf, err = config.New(appCnf)
	if err != nil {
		log.Fatalln(err)
	}

	if err = helpers.PrepareServer(appCnf); err != nil {
		log.Fatalln(err)
	}
	logger := appCnf.Logger
	defer helpers.HandleCloseConnections()

	// services
	ds := dbservice.New(appCnf.ORM, logger)
	rs := redisservice.New(appCnf.RDS, logger)
	ns := natsservice.New(appCnf, logger)

	// models
	tm := models.NewTranscriptModel(appCnf, ds, ns, logger)
	factory := models.NewAzureSessionFactory(appCnf, rs, logger)
	ssm := models.NewSpeechSessionModel(appCnf, factory, tm, rs, logger)

	// capture transport, optional in API-only deployments
	var captureService *capture.Service
	if appCnf.LivekitInfo.RoomName != "" {
		captureService = capture.New(appCnf, ssm, logger)
		if err := captureService.Connect(); err != nil {
			logger.WithError(err).Fatalln("failed to connect capture transport")
		}
	}

	router := handler.Router(appCnf, &handler.AppControllers{
		TranscriptController:  controllers.NewTranscriptController(tm),
		HealthCheckController: controllers.NewHealthCheckController(appCnf),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigChan
		logger.Infoln("exit requested, shutting down", "signal", sig)
		if captureService != nil {
			captureService.Shutdown()
		}
		ssm.Shutdown()
		_ = router.Shutdown()
	}()

	if err := router.Listen(fmt.Sprintf(":%d", appCnf.Client.Port)); err != nil {
		logger.Fatalln(err)
	}
}
