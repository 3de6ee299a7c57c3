package dbmodels

import (
	"time"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
)

// TranscriptMessage is one persisted transcript entry. Rows are append-only;
// insertion order (the auto-increment id) is the room's display order.
type TranscriptMessage struct {
	ID             uint64    `gorm:"column:id;primaryKey;AUTO_INCREMENT" json:"-"`
	RoomId         string    `gorm:"column:roomId;index;NOT NULL" json:"roomId"`
	UserId         string    `gorm:"column:userId;NOT NULL" json:"userId"`
	OriginalText   string    `gorm:"column:original_text;type:text;NOT NULL" json:"originalText"`
	TranslatedText string    `gorm:"column:translated_text;type:text;NOT NULL" json:"translatedText"`
	SourceLang     string    `gorm:"column:source_lang;NOT NULL" json:"sourceLang"`
	CapturedAt     time.Time `gorm:"column:captured_at;NOT NULL" json:"capturedAt"`
	Created        time.Time `gorm:"column:created;default:CURRENT_TIMESTAMP;NOT NULL" json:"-"`
}

func (m *TranscriptMessage) TableName() string {
	return config.FormatDBTable("transcript_messages")
}
