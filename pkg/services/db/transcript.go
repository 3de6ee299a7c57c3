package dbservice

import (
	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
)

// InsertTranscriptMessage appends one message. The row is durable once this
// returns nil; atomicity of the insert is the database's guarantee, the
// caller takes no locks of its own.
func (s *DatabaseService) InsertTranscriptMessage(msg *dbmodels.TranscriptMessage) (int64, error) {
	result := s.db.Create(msg)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// GetTranscriptMessages returns a room's messages oldest first, regardless of
// which participant's orchestrator appended them.
func (s *DatabaseService) GetTranscriptMessages(roomId string) ([]dbmodels.TranscriptMessage, error) {
	var msgs []dbmodels.TranscriptMessage
	cond := &dbmodels.TranscriptMessage{
		RoomId: roomId,
	}

	result := s.db.Where(cond).Order("id ASC").Find(&msgs)
	if result.Error != nil {
		return nil, result.Error
	}

	return msgs, nil
}
