package models

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/mynaparrot/plugnmeet-translate/pkg/audio"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/dbmodels"
	redisservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/redis"
	"github.com/mynaparrot/plugnmeet-translate/pkg/speech"
	"github.com/sirupsen/logrus"
)

// SessionState is the lifecycle of one capture context's recognition session.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionStarting
	SessionActive
	SessionStopped
)

// TranscriptWriter is what the orchestrator needs from the transcript model.
type TranscriptWriter interface {
	Append(roomId, userId string, ev speech.TranslationEvent) error
	Fetch(roomId string) ([]dbmodels.TranscriptMessage, error)
}

// speechSession bundles everything belonging to one capture context.
type speechSession struct {
	cc       *CaptureContext
	state    atomic.Int32
	relay    *speech.Relay
	ingestor *audio.FrameIngestor

	mu        sync.Mutex
	session   speech.Session
	forwarder *audio.Forwarder
}

// SpeechSessionModel orchestrates recognition sessions per capture context:
// it starts a session at most once per context, drains translated results
// into the transcript store each poll cycle, and tears the session down when
// the context ends.
type SpeechSessionModel struct {
	app     *config.AppConfig
	factory speech.SessionFactory
	ts      TranscriptWriter
	rs      *redisservice.RedisService
	pool    *workerpool.WorkerPool
	baseLog *logrus.Logger
	logger  *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*speechSession
}

func NewSpeechSessionModel(app *config.AppConfig, factory speech.SessionFactory, ts TranscriptWriter, rs *redisservice.RedisService, logger *logrus.Logger) *SpeechSessionModel {
	return &SpeechSessionModel{
		app:      app,
		factory:  factory,
		ts:       ts,
		rs:       rs,
		pool:     workerpool.New(config.DefaultSessionStartWorkers),
		baseLog:  logger,
		logger:   logger.WithField("model", "speech_session"),
		sessions: make(map[string]*speechSession),
	}
}

// session returns the record for a capture context, creating it in the Idle
// state on first sight. The ingestor and relay exist from the start so the
// transport may push frames before the engine is up.
func (m *SpeechSessionModel) session(cc *CaptureContext) *speechSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[cc.ID]; ok {
		return s
	}
	s := &speechSession{
		cc:       cc,
		relay:    speech.NewRelay(m.baseLog),
		ingestor: audio.NewFrameIngestor(),
	}
	if !cc.Active() {
		// the context already ended, keep the record terminal so a late
		// caller cannot start a session for it
		s.state.Store(int32(SessionStopped))
		s.ingestor.Stop()
	}
	m.sessions[cc.ID] = s
	return s
}

// evict drops a stopped session record so long-lived processes do not keep
// one entry per finished capture context.
func (m *SpeechSessionModel) evict(s *speechSession) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.cc.ID]; ok && cur == s {
		delete(m.sessions, s.cc.ID)
	}
	m.mu.Unlock()
}

// Ingestor exposes the frame queue of a capture context to the transport
// collaborator.
func (m *SpeechSessionModel) Ingestor(cc *CaptureContext) *audio.FrameIngestor {
	return m.session(cc).ingestor
}

// SessionState reports the lifecycle state of a capture context.
func (m *SpeechSessionModel) SessionState(cc *CaptureContext) SessionState {
	return SessionState(m.session(cc).state.Load())
}

// RunCycle executes one poll cycle for a capture context. The same code path
// re-runs every cycle; the Idle→SessionStarting transition flips before the
// background launch, so repeated cycles start exactly one session. Drained
// events are appended attributed to the context's participant; a failed
// append is surfaced in the returned error but never retried and never aborts
// the cycle. The returned messages are the room's current view for display.
func (m *SpeechSessionModel) RunCycle(cc *CaptureContext) ([]dbmodels.TranscriptMessage, error) {
	s := m.session(cc)

	if s.state.CompareAndSwap(int32(SessionIdle), int32(SessionStarting)) {
		m.pool.Submit(func() {
			m.startSession(s)
		})
	}

	var firstErr error
	for _, ev := range s.relay.Drain() {
		if err := m.ts.Append(cc.RoomId, cc.UserId, ev); err != nil {
			m.logger.WithError(err).WithField("roomId", cc.RoomId).Errorln("failed to append transcript message")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	msgs, err := m.ts.Fetch(cc.RoomId)
	if err != nil && firstErr == nil {
		firstErr = err
	}

	if !cc.Active() {
		m.stopSession(s)
	}

	return msgs, firstErr
}

// Serve drives poll cycles with a fixed delay until the capture context ends.
// It is the host loop for one context and is meant to run in its own
// goroutine; every cycle returns quickly relative to the poll interval.
func (m *SpeechSessionModel) Serve(cc *CaptureContext) {
	interval := time.Second
	if pi := m.app.TranslationSettings.PollInterval; pi != nil && *pi > 0 {
		interval = *pi
	}

	s := m.session(cc)
	for {
		if _, err := m.RunCycle(cc); err != nil {
			m.logger.WithError(err).WithField("roomId", cc.RoomId).Warnln("poll cycle finished with error")
		}
		if SessionState(s.state.Load()) == SessionStopped {
			break
		}
		time.Sleep(interval)
	}

	// a failed start may publish its error event between a cycle's drain and
	// the state check above; one more cycle lands it in the store
	if _, err := m.RunCycle(cc); err != nil {
		m.logger.WithError(err).WithField("roomId", cc.RoomId).Warnln("final poll cycle finished with error")
	}
	m.evict(s)
}

func (m *SpeechSessionModel) startSession(s *speechSession) {
	cc := s.cc
	log := m.logger.WithFields(logrus.Fields{
		"roomId": cc.RoomId,
		"userId": cc.UserId,
	})

	sess, err := m.factory.NewSession(cc.SourceLang, cc.TargetLang, s.relay)
	if err != nil {
		log.WithError(err).Errorln("failed to start recognition session")
		// surface the failure in-band, the same way the engine does
		s.relay.Publish(speech.TranslationEvent{
			OriginalText:   speech.ErrorMarker + err.Error(),
			TranslatedText: config.RecognitionConnectFailedMsg,
			SourceLang:     cc.SourceLang,
			TargetLang:     cc.TargetLang,
			CapturedAt:     time.Now(),
		})
		s.state.Store(int32(SessionStopped))
		return
	}

	if !s.state.CompareAndSwap(int32(SessionStarting), int32(SessionActive)) {
		// the context ended while we were starting, release immediately
		_ = sess.Close()
		return
	}

	fw := audio.NewForwarder(s.ingestor, sess, m.baseLog)
	s.mu.Lock()
	s.session = sess
	s.forwarder = fw
	s.mu.Unlock()
	fw.Start()

	if SessionState(s.state.Load()) == SessionStopped {
		// lost the race with a concurrent stop, release now;
		// Close is single-release guarded so the overlap is safe
		s.ingestor.Stop()
		<-fw.Done()
		_ = sess.Close()
		return
	}

	if m.rs != nil {
		if ss, err := m.rs.SpeechSessionCheckUserUsage(cc.RoomId, cc.UserId); err == nil && ss != "" {
			// stale marker from an unclean shutdown, fold it in before restarting
			if _, err := m.rs.SpeechSessionUsersUsage(cc.RoomId, cc.UserId, redisservice.SessionTaskEnded); err != nil {
				log.WithError(err).Warnln("failed to settle stale session marker")
			}
		}
		if _, err := m.rs.SpeechSessionUsersUsage(cc.RoomId, cc.UserId, redisservice.SessionTaskStarted); err != nil {
			log.WithError(err).Warnln("failed to record session start")
		}
	}
	log.Infoln("recognition session active")
}

func (m *SpeechSessionModel) stopSession(s *speechSession) {
	prev := s.state.Swap(int32(SessionStopped))
	if SessionState(prev) == SessionStopped {
		return
	}

	cc := s.cc
	s.ingestor.Stop()

	s.mu.Lock()
	sess := s.session
	fw := s.forwarder
	s.mu.Unlock()

	if fw != nil {
		// let the worker drain queued frames before the stream closes
		<-fw.Done()
	}
	if sess != nil {
		if err := sess.Close(); err != nil {
			m.logger.WithError(err).Errorln("failed to close recognition session")
		}
	}

	if m.rs != nil && SessionState(prev) == SessionActive {
		if _, err := m.rs.SpeechSessionUsersUsage(cc.RoomId, cc.UserId, redisservice.SessionTaskEnded); err != nil {
			m.logger.WithError(err).Warnln("failed to record session end")
		}
	}
	m.logger.WithField("roomId", cc.RoomId).Infoln("recognition session stopped")
}

// OnAfterRoomEnded closes usage bookkeeping once every participant has left.
func (m *SpeechSessionModel) OnAfterRoomEnded(roomId string) error {
	if m.rs == nil {
		return nil
	}
	// give in-flight session-end requests a moment to land
	time.Sleep(config.WaitBeforeSpeechServicesOnAfterRoomEnded)

	hkeys, err := m.rs.SpeechSessionGetHashKeys(roomId)
	if err != nil {
		return err
	}
	for _, k := range hkeys {
		if k != "total_usage" {
			_, _ = m.rs.SpeechSessionUsersUsage(roomId, k, redisservice.SessionTaskEnded)
		}
	}

	if usage, err := m.rs.SpeechSessionGetTotalUsageByRoomId(roomId); err == nil && usage != "" {
		m.logger.WithFields(logrus.Fields{
			"roomId":     roomId,
			"totalUsage": usage,
		}).Infoln("speech service room usage")
	}

	return m.rs.SpeechSessionDeleteRoom(roomId)
}

// Shutdown stops all running sessions and waits for queued start tasks.
func (m *SpeechSessionModel) Shutdown() {
	m.mu.Lock()
	sessions := make([]*speechSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.cc.End()
		m.stopSession(s)
		m.evict(s)
	}
	m.pool.StopWait()
}
