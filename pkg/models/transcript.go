package models

import (
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
	dbservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/db"
	natsservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/nats"
	"github.com/mynaparrot/plugnmeet-translate/pkg/speech"
	"github.com/sirupsen/logrus"
)

// TranscriptModel owns the shared per-room transcript log.
type TranscriptModel struct {
	app         *config.AppConfig
	ds          *dbservice.DatabaseService
	natsService *natsservice.NatsService
	logger      *logrus.Entry
}

func NewTranscriptModel(app *config.AppConfig, ds *dbservice.DatabaseService, natsService *natsservice.NatsService, logger *logrus.Logger) *TranscriptModel {
	return &TranscriptModel{
		app:         app,
		ds:          ds,
		natsService: natsService,
		logger:      logger.WithField("model", "transcript"),
	}
}

// Append persists one translation event as an immutable message attributed to
// the given participant, then broadcasts it to the room. A broadcast failure
// is logged only; the append already succeeded.
func (m *TranscriptModel) Append(roomId, userId string, ev speech.TranslationEvent) error {
	msg := &dbmodels.TranscriptMessage{
		RoomId:         roomId,
		UserId:         userId,
		OriginalText:   ev.OriginalText,
		TranslatedText: ev.TranslatedText,
		SourceLang:     ev.SourceLang,
		CapturedAt:     ev.CapturedAt,
	}

	if _, err := m.ds.InsertTranscriptMessage(msg); err != nil {
		return err
	}

	if err := m.natsService.BroadcastTranscriptMessage(msg); err != nil {
		m.logger.WithError(err).Warnln("failed to broadcast transcript message")
	}

	return nil
}

// Fetch returns a room's messages oldest first.
func (m *TranscriptModel) Fetch(roomId string) ([]dbmodels.TranscriptMessage, error) {
	return m.ds.GetTranscriptMessages(roomId)
}
