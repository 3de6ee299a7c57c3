package factory

import (
	"fmt"
	"time"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

func NewDatabaseConnection(appCnf *config.AppConfig) error {
	info := appCnf.DatabaseInfo
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC", info.Username, info.Password, info.Host, info.Port, info.DBName)

	cnf := &gorm.Config{}
	if appCnf.Client.Debug {
		cnf.Logger = logger.Default.LogMode(logger.Info)
	} else {
		cnf.Logger = logger.New(
			appCnf.Logger,
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		)
	}

	db, err := gorm.Open(mysql.Open(dsn), cnf)
	if err != nil {
		return err
	}

	// list-heavy rooms can read from replicas
	if len(info.Replicas) > 0 {
		var replicas []gorm.Dialector
		for _, r := range info.Replicas {
			rDsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC", r.Username, r.Password, r.Host, r.Port, info.DBName)
			replicas = append(replicas, mysql.Open(rDsn))
		}
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return err
		}
	}

	d, err := db.DB()
	if err != nil {
		return err
	}

	maxLifetime := time.Minute * 4
	if info.ConnMaxLifetime != nil && *info.ConnMaxLifetime > 0 {
		maxLifetime = *info.ConnMaxLifetime
	}
	d.SetConnMaxLifetime(maxLifetime)

	maxOpen := 100
	if info.MaxOpenConns != nil && *info.MaxOpenConns > 0 {
		maxOpen = *info.MaxOpenConns
	}
	d.SetMaxOpenConns(maxOpen)

	appCnf.ORM = db
	return nil
}
