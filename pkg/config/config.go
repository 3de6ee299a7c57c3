package config

import (
	"time"

	"github.com/mynaparrot/plugnmeet-translate/pkg/logging"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var appCnf *AppConfig

type AppConfig struct {
	RDS      *redis.Client
	ORM      *gorm.DB
	Logger   *logrus.Logger
	NatsConn *nats.Conn

	RootWorkingDir               string
	Client                       ClientInfo                   `yaml:"client"`
	LogSettings                  logging.LogSettings          `yaml:"log_settings"`
	LivekitInfo                  LivekitInfo                  `yaml:"livekit_info"`
	RedisInfo                    RedisInfo                    `yaml:"redis_info"`
	DatabaseInfo                 DatabaseInfo                 `yaml:"database_info"`
	NatsInfo                     NatsInfo                     `yaml:"nats_info"`
	AzureCognitiveServicesSpeech AzureCognitiveServicesSpeech `yaml:"azure_cognitive_services_speech"`
	TranslationSettings          TranslationSettings          `yaml:"translation_settings"`
}

type ClientInfo struct {
	Port           int            `yaml:"port"`
	Debug          bool           `yaml:"debug"`
	ProxyHeader    string         `yaml:"proxy_header"`
	PrometheusConf PrometheusConf `yaml:"prometheus"`
}

type PrometheusConf struct {
	Enable      bool   `yaml:"enable"`
	MetricsPath string `yaml:"metrics_path"`
}

// LivekitInfo describes the transport collaborator that delivers captured
// audio. RoomName empty means API-only mode, no capture connection is made.
type LivekitInfo struct {
	Host     string `yaml:"host"`
	ApiKey   string `yaml:"api_key"`
	Secret   string `yaml:"secret"`
	RoomName string `yaml:"room_name"`
	Identity string `yaml:"identity"`
}

type DatabaseInfo struct {
	Host            string          `yaml:"host"`
	Port            int32           `yaml:"port"`
	Username        string          `yaml:"username"`
	Password        string          `yaml:"password"`
	DBName          string          `yaml:"db"`
	Prefix          string          `yaml:"prefix"`
	ConnMaxLifetime *time.Duration  `yaml:"conn_max_lifetime"`
	MaxOpenConns    *int            `yaml:"max_open_conns"`
	Replicas        []ReplicaDBInfo `yaml:"replicas"`
}

// ReplicaDBInfo holds connection details for a read replica database.
type ReplicaDBInfo struct {
	Host     string `yaml:"host"`
	Port     int32  `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisInfo struct {
	Host              string   `yaml:"host"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DBName            int      `yaml:"db"`
	UseTLS            bool     `yaml:"use_tls"`
	MasterName        string   `yaml:"sentinel_master_name"`
	SentinelUsername  string   `yaml:"sentinel_username"`
	SentinelPassword  string   `yaml:"sentinel_password"`
	SentinelAddresses []string `yaml:"sentinel_addresses"`
}

type NatsInfo struct {
	NatsUrls []string     `yaml:"nats_urls"`
	User     string       `yaml:"user"`
	Password string       `yaml:"password"`
	Subjects NatsSubjects `yaml:"subjects"`
}

type NatsSubjects struct {
	TranscriptPrefix string `yaml:"transcript_prefix"`
}

type AzureCognitiveServicesSpeech struct {
	Enabled          bool                   `yaml:"enabled"`
	SubscriptionKeys []AzureSubscriptionKey `yaml:"subscription_keys"`
}

type AzureSubscriptionKey struct {
	Id              string `yaml:"id"`
	SubscriptionKey string `yaml:"subscription_key"`
	ServiceRegion   string `yaml:"service_region"`
	MaxConnection   int64  `yaml:"max_connection"`
}

// TranslationSettings carries the per-deployment defaults the original UI let
// the user pick. Language codes are passed through to the engine unchanged.
type TranslationSettings struct {
	SourceLang   string         `yaml:"source_lang"`
	TargetLang   string         `yaml:"target_lang"`
	PollInterval *time.Duration `yaml:"poll_interval"`
}

func New(cnf *AppConfig) (*AppConfig, error) {
	if cnf.TranslationSettings.PollInterval == nil || *cnf.TranslationSettings.PollInterval <= 0 {
		d := time.Second
		cnf.TranslationSettings.PollInterval = &d
	}
	if cnf.TranslationSettings.SourceLang == "" {
		cnf.TranslationSettings.SourceLang = "en-US"
	}
	if cnf.TranslationSettings.TargetLang == "" {
		cnf.TranslationSettings.TargetLang = "es"
	}
	if cnf.NatsInfo.Subjects.TranscriptPrefix == "" {
		cnf.NatsInfo.Subjects.TranscriptPrefix = "translate.room"
	}

	appCnf = cnf
	return appCnf, nil
}

func GetConfig() *AppConfig {
	return appCnf
}

func FormatDBTable(table string) string {
	if appCnf != nil && appCnf.DatabaseInfo.Prefix != "" {
		return appCnf.DatabaseInfo.Prefix + table
	}
	return table
}
