package capture

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/livekit/media-sdk"
	lksdk "github.com/livekit/server-sdk-go/v2"
	lkmedia "github.com/livekit/server-sdk-go/v2/pkg/media"
	"github.com/mynaparrot/plugnmeet-translate/pkg/audio"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/mynaparrot/plugnmeet-translate/pkg/models"
	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// capture delivers frames at the transport's native rate; the pipeline's own
// resampler takes them down to the canonical format.
const captureSampleRate = 48000

// Service is the transport collaborator: it joins a LiveKit room, subscribes
// to remote audio tracks and pushes their PCM into the pipeline's frame
// ingestors. One capture context exists per subscribed track.
type Service struct {
	app    *config.AppConfig
	ssm    *models.SpeechSessionModel
	logger *logrus.Entry

	room  *lksdk.Room
	group errgroup.Group

	mu     sync.Mutex
	tracks map[string]*trackCapture
}

type trackCapture struct {
	cc       *models.CaptureContext
	pcmTrack *lkmedia.PCMRemoteTrack
}

func New(app *config.AppConfig, ssm *models.SpeechSessionModel, logger *logrus.Logger) *Service {
	return &Service{
		app:    app,
		ssm:    ssm,
		logger: logger.WithField("service", "capture"),
		tracks: make(map[string]*trackCapture),
	}
}

// Connect joins the configured room and starts serving capture contexts as
// audio tracks appear.
func (s *Service) Connect() error {
	lk := s.app.LivekitInfo
	if lk.RoomName == "" {
		return fmt.Errorf("no livekit room configured")
	}

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   s.onTrackSubscribed,
			OnTrackUnsubscribed: s.onTrackUnsubscribed,
		},
	}

	room, err := lksdk.ConnectToRoom(lk.Host, lksdk.ConnectInfo{
		APIKey:              lk.ApiKey,
		APISecret:           lk.Secret,
		RoomName:            lk.RoomName,
		ParticipantIdentity: lk.Identity,
	}, cb)
	if err != nil {
		return err
	}

	s.room = room
	s.logger.WithField("room", lk.RoomName).Infoln("connected to livekit room")
	return nil
}

func (s *Service) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	log := s.logger.WithFields(logrus.Fields{
		"trackId":  track.ID(),
		"identity": rp.Identity(),
	})

	ts := s.app.TranslationSettings
	cc := models.NewCaptureContext(s.app.LivekitInfo.RoomName, rp.Identity(), ts.SourceLang, ts.TargetLang)
	ingestor := s.ssm.Ingestor(cc)

	writer := &trackWriter{ingestor: ingestor}
	pcmTrack, err := lkmedia.NewPCMRemoteTrack(track, writer, lkmedia.WithTargetSampleRate(captureSampleRate))
	if err != nil {
		log.WithError(err).Errorln("failed to create pcm track")
		cc.End()
		return
	}

	s.mu.Lock()
	s.tracks[track.ID()] = &trackCapture{cc: cc, pcmTrack: pcmTrack}
	s.mu.Unlock()

	s.group.Go(func() error {
		s.ssm.Serve(cc)
		return nil
	})
	log.Infoln("capture context started")
}

func (s *Service) onTrackUnsubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	s.mu.Lock()
	tc, ok := s.tracks[track.ID()]
	delete(s.tracks, track.ID())
	s.mu.Unlock()

	if !ok {
		return
	}
	tc.pcmTrack.Close()
	tc.cc.End()
	s.logger.WithField("trackId", track.ID()).Infoln("capture context ended")
}

// Shutdown disconnects from the room and waits for all serve loops to exit.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for id, tc := range s.tracks {
		tc.pcmTrack.Close()
		tc.cc.End()
		delete(s.tracks, id)
	}
	s.mu.Unlock()

	if s.room != nil {
		s.room.Disconnect()
	}
	_ = s.group.Wait()
}

// trackWriter implements the media.Writer the PCMRemoteTrack feeds. Samples
// arrive on the media pipeline's goroutine; Submit never blocks it.
type trackWriter struct {
	ingestor *audio.FrameIngestor
}

func (w *trackWriter) WriteSample(sample media.PCM16Sample) error {
	if len(sample) == 0 {
		return nil
	}

	data := make([]byte, len(sample)*2)
	for i, v := range sample {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}

	w.ingestor.Submit(audio.RawFrame{
		Data:       data,
		SampleRate: captureSampleRate,
		Channels:   1,
		Format:     audio.SampleFormatS16,
	})
	return nil
}

func (w *trackWriter) Close() error {
	return nil
}
