package speech

import (
	"fmt"
	"sync"
	"time"

	azaudio "github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	azspeech "github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/sirupsen/logrus"
)

// AzureSession is a live translation session against the Azure Speech SDK.
// Canonical PCM written through Write feeds the recognizer's push stream;
// recognized and canceled events arrive on the SDK's own callback context and
// are forwarded into the relay.
type AzureSession struct {
	recognizer *azspeech.TranslationRecognizer
	pushStream *azaudio.PushAudioInputStream
	relay      *Relay
	targetLang string
	sourceLang string
	logger     *logrus.Entry
	closeOnce  sync.Once
	errOnce    sync.Once
}

// NewAzureSession builds the translation recognizer from one subscription key,
// wires the event handlers and starts continuous recognition in the background.
func NewAzureSession(subscriptionKey, serviceRegion, sourceLang, targetLang string, relay *Relay, logger *logrus.Logger) (*AzureSession, error) {
	cnf, err := azspeech.NewSpeechTranslationConfigFromSubscription(subscriptionKey, serviceRegion)
	if err != nil {
		return nil, err
	}
	if err := cnf.SetSpeechRecognitionLanguage(sourceLang); err != nil {
		return nil, err
	}
	if err := cnf.AddTargetLanguage(targetLang); err != nil {
		return nil, err
	}

	// the engine accepts exactly one input format, never negotiated per-session
	audioFormat, err := azaudio.GetWaveFormatPCM(config.CanonicalSampleRate, config.CanonicalBitDepth, config.CanonicalChannels)
	if err != nil {
		return nil, fmt.Errorf("could not create audio format: %w", err)
	}
	pushStream, err := azaudio.CreatePushAudioInputStreamFromFormat(audioFormat)
	if err != nil {
		return nil, fmt.Errorf("could not create push input stream: %w", err)
	}
	audioConfig, err := azaudio.NewAudioConfigFromStreamInput(pushStream)
	if err != nil {
		return nil, err
	}

	recognizer, err := azspeech.NewTranslationRecognizerFromConfig(cnf, audioConfig)
	if err != nil {
		return nil, err
	}

	s := &AzureSession{
		recognizer: recognizer,
		pushStream: pushStream,
		relay:      relay,
		sourceLang: sourceLang,
		targetLang: targetLang,
		logger: logger.WithFields(logrus.Fields{
			"session":    "azure_translation",
			"sourceLang": sourceLang,
			"targetLang": targetLang,
		}),
	}

	recognizer.SessionStarted(func(e azspeech.SessionEventArgs) {
		s.logger.Infoln("azure translation session started")
	})
	recognizer.SessionStopped(func(e azspeech.SessionEventArgs) {
		s.logger.Infoln("azure translation session stopped")
	})
	recognizer.Recognized(s.onRecognized)
	recognizer.Canceled(s.onCanceled)

	go func() {
		// StartContinuousRecognitionAsync returns a channel carrying the
		// result of the async start; a failure here is terminal.
		if err := <-recognizer.StartContinuousRecognitionAsync(); err != nil {
			s.logger.WithError(err).Errorln("error starting azure recognition")
			s.publishError(err.Error(), config.RecognitionConnectFailedMsg)
		}
	}()

	return s, nil
}

// onRecognized forwards an event only when both the original text and the
// target-language translation are non-empty. Partial or empty recognitions
// never leave the facade.
func (s *AzureSession) onRecognized(e azspeech.TranslationRecognitionEventArgs) {
	publishRecognized(s.relay, e.Result.Text, e.Result.GetTranslations()[s.targetLang], s.sourceLang, s.targetLang, time.Now())
}

// onCanceled surfaces an error cancellation as a single transcript-worthy
// event so downstream consumers do not need a separate failure path.
func (s *AzureSession) onCanceled(e azspeech.TranslationRecognitionCanceledEventArgs) {
	s.logger.WithField("reason", e.Reason).Infof("azure recognition canceled: %s", e.ErrorDetails)
	if e.Reason == common.Error {
		s.publishError(e.ErrorDetails, config.RecognitionFailedMsg)
	}
}

func (s *AzureSession) publishError(details, translated string) {
	s.errOnce.Do(func() {
		s.relay.Publish(TranslationEvent{
			OriginalText:   ErrorMarker + details,
			TranslatedText: translated,
			SourceLang:     s.sourceLang,
			TargetLang:     s.targetLang,
			CapturedAt:     time.Now(),
		})
	})
}

// Write pushes canonical PCM bytes into the recognizer's input stream.
func (s *AzureSession) Write(p []byte) (int, error) {
	if err := s.pushStream.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close stops recognition and releases the stream and recognizer resources.
func (s *AzureSession) Close() error {
	s.closeOnce.Do(func() {
		<-s.recognizer.StopContinuousRecognitionAsync()
		s.pushStream.CloseStream()
		s.recognizer.Close()
	})
	return nil
}
