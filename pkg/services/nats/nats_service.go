package natsservice

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type NatsService struct {
	app    *config.AppConfig
	nc     *nats.Conn
	logger *logrus.Entry
}

func New(app *config.AppConfig, logger *logrus.Logger) *NatsService {
	if app == nil {
		app = config.GetConfig()
	}

	return &NatsService{
		app:    app,
		nc:     app.NatsConn,
		logger: logger.WithField("service", "nats"),
	}
}

// BroadcastTranscriptMessage publishes a freshly appended message to the
// room's subject so connected clients render it without polling the store.
// Delivery is best effort; the store remains the authoritative record.
func (s *NatsService) BroadcastTranscriptMessage(msg *dbmodels.TranscriptMessage) error {
	if s.nc == nil {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", s.app.NatsInfo.Subjects.TranscriptPrefix, msg.RoomId)
	return s.nc.Publish(subject, payload)
}
