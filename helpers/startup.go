package helpers

import (
	"context"
	"os"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/factory"
	"github.com/mynaparrot/plugnmeet-translate/pkg/logging"
	"gopkg.in/yaml.v3"
)

func PrepareServer(appCnf *config.AppConfig) error {
	logger, err := logging.NewLogger(&appCnf.LogSettings)
	if err != nil {
		return err
	}
	appCnf.Logger = logger

	if err := factory.NewDatabaseConnection(appCnf); err != nil {
		return err
	}

	if err := factory.NewRedisConnection(context.Background(), appCnf); err != nil {
		return err
	}

	return factory.NewNatsConnection(appCnf)
}

func ReadYamlConfigFile(cnfFile string) (*config.AppConfig, error) {
	yamlFile, err := os.ReadFile(cnfFile)
	if err != nil {
		return nil, err
	}

	appCnf := new(config.AppConfig)
	if err = yaml.Unmarshal(yamlFile, appCnf); err != nil {
		return nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	appCnf.RootWorkingDir = wd

	return appCnf, nil
}
