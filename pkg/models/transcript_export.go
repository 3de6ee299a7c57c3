package models

import (
	"encoding/csv"
	"io"

	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
)

// utf8Bom keeps Excel happy with non-ASCII transcripts.
var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

// WriteTranscriptCSV renders messages as tabular rows in insertion order.
func WriteTranscriptCSV(w io.Writer, msgs []dbmodels.TranscriptMessage) error {
	if _, err := w.Write(utf8Bom); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"User", "Original Text", "Translated Text", "Timestamp", "Language"}); err != nil {
		return err
	}

	for _, msg := range msgs {
		row := []string{
			msg.UserId,
			msg.OriginalText,
			msg.TranslatedText,
			msg.CapturedAt.Format("15:04:05"),
			msg.SourceLang,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV fetches a room's transcript and streams it as CSV.
// It returns the number of exported messages.
func (m *TranscriptModel) ExportCSV(w io.Writer, roomId string) (int, error) {
	msgs, err := m.Fetch(roomId)
	if err != nil {
		return 0, err
	}

	if err := WriteTranscriptCSV(w, msgs); err != nil {
		return 0, err
	}

	return len(msgs), nil
}
