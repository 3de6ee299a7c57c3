package factory

import (
	"strings"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/nats-io/nats.go"
)

func NewNatsConnection(appCnf *config.AppConfig) error {
	info := appCnf.NatsInfo
	if len(info.NatsUrls) == 0 {
		// broadcasting is optional; clients fall back to polling the API
		return nil
	}

	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
	}
	if info.User != "" {
		opts = append(opts, nats.UserInfo(info.User, info.Password))
	}

	nc, err := nats.Connect(strings.Join(info.NatsUrls, ","), opts...)
	if err != nil {
		return err
	}

	appCnf.NatsConn = nc
	return nil
}
