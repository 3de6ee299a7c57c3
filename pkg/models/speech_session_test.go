package models

import (
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mynaparrot/plugnmeet-translate/pkg/audio"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
	"github.com/mynaparrot/plugnmeet-translate/pkg/speech"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type fakeEngineSession struct {
	mu      sync.Mutex
	written []byte
	closed  int

	// when set, one recognized event is emitted after enough audio arrived
	relay   *speech.Relay
	emitted bool
}

func (s *fakeEngineSession) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, p...)
	if s.relay != nil && !s.emitted && len(s.written) >= 1900 {
		s.emitted = true
		s.relay.Publish(speech.TranslationEvent{
			OriginalText:   "hello",
			TranslatedText: "hola",
			SourceLang:     "en-US",
			TargetLang:     "es",
			CapturedAt:     time.Now(),
		})
	}
	return len(p), nil
}

func (s *fakeEngineSession) writtenBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

func (s *fakeEngineSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeEngineSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSessionFactory struct {
	mu          sync.Mutex
	calls       int
	failure     error
	emitOnAudio bool
	session     *fakeEngineSession
	relay       *speech.Relay
}

func (f *fakeSessionFactory) NewSession(sourceLang, targetLang string, relay *speech.Relay) (speech.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failure != nil {
		return nil, f.failure
	}
	f.session = &fakeEngineSession{}
	if f.emitOnAudio {
		f.session.relay = relay
	}
	f.relay = relay
	return f.session, nil
}

func (f *fakeSessionFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranscriptStore struct {
	mu        sync.Mutex
	appends   int
	failOnce  bool
	messages  []dbmodels.TranscriptMessage
	nextRowId uint64
}

func (s *fakeTranscriptStore) Append(roomId, userId string, ev speech.TranslationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.failOnce {
		s.failOnce = false
		return errors.New("db gone away")
	}
	s.nextRowId++
	s.messages = append(s.messages, dbmodels.TranscriptMessage{
		ID:             s.nextRowId,
		RoomId:         roomId,
		UserId:         userId,
		OriginalText:   ev.OriginalText,
		TranslatedText: ev.TranslatedText,
		SourceLang:     ev.SourceLang,
		CapturedAt:     ev.CapturedAt,
	})
	return nil
}

func (s *fakeTranscriptStore) Fetch(roomId string) ([]dbmodels.TranscriptMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dbmodels.TranscriptMessage
	for _, m := range s.messages {
		if m.RoomId == roomId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeTranscriptStore) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

func newTestModel(factory speech.SessionFactory, ts TranscriptWriter) *SpeechSessionModel {
	return NewSpeechSessionModel(&config.AppConfig{}, factory, ts, nil, testLogger())
}

func waitForState(t *testing.T, m *SpeechSessionModel, cc *CaptureContext, want SessionState) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for m.SessionState(cc) != want {
		select {
		case <-deadline:
			t.Fatalf("state never reached %d, now %d", want, m.SessionState(cc))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSpeechSessionModel_StartsExactlyOneSession(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	for i := 0; i < 5; i++ {
		if _, err := m.RunCycle(cc); err != nil {
			t.Fatal(err)
		}
	}
	waitForState(t, m, cc, SessionActive)

	for i := 0; i < 5; i++ {
		if _, err := m.RunCycle(cc); err != nil {
			t.Fatal(err)
		}
	}

	if got := factory.callCount(); got != 1 {
		t.Errorf("expected exactly one session, factory called %d times", got)
	}
}

func TestSpeechSessionModel_RecognizedEventReachesTranscript(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionActive)

	factory.relay.Publish(speech.TranslationEvent{
		OriginalText:   "hello",
		TranslatedText: "hola",
		SourceLang:     "en-US",
		TargetLang:     "es",
		CapturedAt:     time.Now(),
	})

	msgs, err := m.RunCycle(cc)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.RoomId != "General" || msg.UserId != "User" {
		t.Errorf("wrong attribution: room %q user %q", msg.RoomId, msg.UserId)
	}
	if msg.OriginalText != "hello" || msg.TranslatedText != "hola" {
		t.Errorf("wrong text: %q / %q", msg.OriginalText, msg.TranslatedText)
	}
	if factory.relay.Len() != 0 {
		t.Errorf("relay not fully drained, %d events left", factory.relay.Len())
	}
}

func TestSpeechSessionModel_AudioToTranscriptEndToEnd(t *testing.T) {
	factory := &fakeSessionFactory{emitOnAudio: true}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionActive)

	// 3 x 20ms at 48kHz mono, the forwarder takes them down to 16kHz
	ing := m.Ingestor(cc)
	frame := make([]byte, 960*2)
	for i := 0; i < 960; i++ {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(int16(1000)))
	}
	for i := 0; i < 3; i++ {
		ing.Submit(audio.RawFrame{Data: frame, SampleRate: 48000, Channels: 1, Format: audio.SampleFormatS16})
	}

	deadline := time.After(3 * time.Second)
	for factory.session.writtenBytes() < 1900 {
		select {
		case <-deadline:
			t.Fatalf("engine received only %d bytes", factory.session.writtenBytes())
		case <-time.After(5 * time.Millisecond):
		}
	}

	msgs, err := m.RunCycle(cc)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].OriginalText != "hello" || msgs[0].TranslatedText != "hola" {
		t.Errorf("unexpected message: %q / %q", msgs[0].OriginalText, msgs[0].TranslatedText)
	}
	if msgs[0].RoomId != "General" || msgs[0].UserId != "User" {
		t.Errorf("wrong attribution: room %q user %q", msgs[0].RoomId, msgs[0].UserId)
	}
}

func TestSpeechSessionModel_EngineErrorEventAppendedOnce(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionActive)

	factory.relay.Publish(speech.TranslationEvent{
		OriginalText:   speech.ErrorMarker + "bad key",
		TranslatedText: config.RecognitionFailedMsg,
		SourceLang:     "en-US",
		TargetLang:     "es",
		CapturedAt:     time.Now(),
	})

	var msgs []dbmodels.TranscriptMessage
	var err error
	for i := 0; i < 3; i++ {
		msgs, err = m.RunCycle(cc)
		if err != nil {
			t.Fatal(err)
		}
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].OriginalText != "ERROR: bad key" {
		t.Errorf("unexpected original text %q", msgs[0].OriginalText)
	}
	if msgs[0].TranslatedText != "Recognition failed. Check Azure credentials." {
		t.Errorf("unexpected translated text %q", msgs[0].TranslatedText)
	}
}

func TestSpeechSessionModel_FactoryFailureSurfacedInBand(t *testing.T) {
	factory := &fakeSessionFactory{failure: errors.New("no subscription key")}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionStopped)

	msgs, err := m.RunCycle(cc)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 synthesized error message, got %d", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].OriginalText, speech.ErrorMarker) {
		t.Errorf("expected error marker prefix, got %q", msgs[0].OriginalText)
	}
	if msgs[0].TranslatedText != config.RecognitionConnectFailedMsg {
		t.Errorf("unexpected translated text %q", msgs[0].TranslatedText)
	}
	if got := factory.callCount(); got != 1 {
		t.Errorf("expected no start retry, factory called %d times", got)
	}
}

func TestSpeechSessionModel_AppendFailureNotRetried(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{failOnce: true}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionActive)

	factory.relay.Publish(speech.TranslationEvent{
		OriginalText:   "hello",
		TranslatedText: "hola",
		CapturedAt:     time.Now(),
	})

	if _, err := m.RunCycle(cc); err == nil {
		t.Fatal("expected the failed append to surface")
	}
	if got := store.appendCount(); got != 1 {
		t.Errorf("expected a single append attempt, got %d", got)
	}

	// the dropped event stays dropped on the next cycle
	msgs, err := m.RunCycle(cc)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no stored messages, got %d", len(msgs))
	}
}

func TestSpeechSessionModel_ServeAppendsStartFailureAndEvicts(t *testing.T) {
	factory := &fakeSessionFactory{failure: errors.New("no subscription key")}
	store := &fakeTranscriptStore{}
	d := 10 * time.Millisecond
	m := NewSpeechSessionModel(&config.AppConfig{
		TranslationSettings: config.TranslationSettings{PollInterval: &d},
	}, factory, store, nil, testLogger())
	cc := NewCaptureContext("General", "User", "en-US", "es")

	done := make(chan struct{})
	go func() {
		m.Serve(cc)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the failed start")
	}

	// the synthesized error event must be stored even when it was published
	// between the last drain and the state check
	msgs, err := store.Fetch("General")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored error message, got %d", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].OriginalText, speech.ErrorMarker) {
		t.Errorf("expected error marker prefix, got %q", msgs[0].OriginalText)
	}

	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("expected session record evicted, %d left", n)
	}
}

func TestSpeechSessionModel_ServeStopsWhenContextEnds(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{}
	d := 10 * time.Millisecond
	m := NewSpeechSessionModel(&config.AppConfig{
		TranslationSettings: config.TranslationSettings{PollInterval: &d},
	}, factory, store, nil, testLogger())
	cc := NewCaptureContext("General", "User", "en-US", "es")

	done := make(chan struct{})
	go func() {
		m.Serve(cc)
		close(done)
	}()
	waitForState(t, m, cc, SessionActive)

	cc.End()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the context ended")
	}

	if got := factory.session.closeCount(); got != 1 {
		t.Errorf("expected exactly one close, got %d", got)
	}
	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("expected session record evicted, %d left", n)
	}
}

func TestSpeechSessionModel_ServeWithoutConfiguredInterval(t *testing.T) {
	factory := &fakeSessionFactory{failure: errors.New("speech service disabled")}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	done := make(chan struct{})
	go func() {
		m.Serve(cc)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return with the fallback poll interval")
	}
}

func TestSpeechSessionModel_EndedContextClosesSessionOnce(t *testing.T) {
	factory := &fakeSessionFactory{}
	store := &fakeTranscriptStore{}
	m := newTestModel(factory, store)
	cc := NewCaptureContext("General", "User", "en-US", "es")

	if _, err := m.RunCycle(cc); err != nil {
		t.Fatal(err)
	}
	waitForState(t, m, cc, SessionActive)

	cc.End()
	for i := 0; i < 3; i++ {
		if _, err := m.RunCycle(cc); err != nil {
			t.Fatal(err)
		}
	}
	if m.SessionState(cc) != SessionStopped {
		t.Fatalf("expected stopped state, got %d", m.SessionState(cc))
	}
	if got := factory.session.closeCount(); got != 1 {
		t.Errorf("expected exactly one close, got %d", got)
	}
	if !m.Ingestor(cc).Stopped() {
		t.Error("expected ingestor stopped with the session")
	}
}
