package speech

import (
	"io"
	"time"
)

// TranslationEvent is one finalized piece of recognized speech together with
// its translation. Both text fields are non-empty by construction, except for
// the single synthesized error event of a failed session whose OriginalText
// starts with ErrorMarker.
type TranslationEvent struct {
	OriginalText   string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	CapturedAt     time.Time
}

// ErrorMarker prefixes the OriginalText of a synthesized error event.
const ErrorMarker = "ERROR: "

// Session is the narrow capability the pipeline needs from a streaming speech
// translation engine: push canonical PCM bytes in, results arrive through the
// relay the session was built with. Close must be safe to call exactly once
// per session without double-release errors.
type Session interface {
	io.Writer
	io.Closer
}

// SessionFactory creates a live recognition session which will publish its
// results into the given relay.
type SessionFactory interface {
	NewSession(sourceLang, targetLang string, relay *Relay) (Session, error)
}

// publishRecognized forwards a recognition only when both the original text
// and the translation are non-empty. Partial results are dropped silently.
func publishRecognized(r *Relay, original, translated, sourceLang, targetLang string, capturedAt time.Time) bool {
	if original == "" || translated == "" {
		return false
	}
	r.Publish(TranslationEvent{
		OriginalText:   original,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		CapturedAt:     capturedAt,
	})
	return true
}
