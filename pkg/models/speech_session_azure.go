package models

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	redisservice "github.com/mynaparrot/plugnmeet-translate/pkg/services/redis"
	"github.com/mynaparrot/plugnmeet-translate/pkg/speech"
	"github.com/sirupsen/logrus"
)

// AzureSessionFactory creates Azure recognition sessions, picking the least
// loaded subscription key and keeping its connection counter in Redis.
type AzureSessionFactory struct {
	app    *config.AppConfig
	rs     *redisservice.RedisService
	logger *logrus.Logger
}

func NewAzureSessionFactory(app *config.AppConfig, rs *redisservice.RedisService, logger *logrus.Logger) *AzureSessionFactory {
	return &AzureSessionFactory{
		app:    app,
		rs:     rs,
		logger: logger,
	}
}

func (f *AzureSessionFactory) NewSession(sourceLang, targetLang string, relay *speech.Relay) (speech.Session, error) {
	if !f.app.AzureCognitiveServicesSpeech.Enabled {
		return nil, errors.New("speech service disabled")
	}

	k, err := f.selectAzureKey()
	if err != nil {
		return nil, err
	}

	sess, err := speech.NewAzureSession(k.SubscriptionKey, k.ServiceRegion, sourceLang, targetLang, relay, f.logger)
	if err != nil {
		return nil, err
	}

	if err := f.rs.SpeechSessionUpdateKeyStatus(k.Id, redisservice.SessionTaskStarted); err != nil {
		f.logger.WithError(err).Warnln("failed to increment key connections")
	}

	return &keyTrackedSession{
		Session: sess,
		factory: f,
		keyId:   k.Id,
	}, nil
}

// selectAzureKey prefers the key with the most remaining connection headroom.
func (f *AzureSessionFactory) selectAzureKey() (*config.AzureSubscriptionKey, error) {
	sub := f.app.AzureCognitiveServicesSpeech.SubscriptionKeys

	if len(sub) == 0 {
		return nil, errors.New("no key found")
	} else if len(sub) == 1 {
		return &sub[0], nil
	}

	var keys []config.AzureSubscriptionKey
	for _, k := range sub {
		conns, err := f.rs.SpeechSessionGetConnectionsByKeyId(k.Id)
		if err != nil {
			continue
		}

		var count int
		if conns != "" {
			count, err = strconv.Atoi(conns)
			if err != nil {
				continue
			}
		}

		k.MaxConnection = k.MaxConnection - int64(count)
		keys = append(keys, k)
	}

	if len(keys) == 0 {
		return nil, errors.New("no key found")
	}

	sort.Slice(keys, func(i int, j int) bool {
		return keys[i].MaxConnection > keys[j].MaxConnection
	})

	return &keys[0], nil
}

// keyTrackedSession releases the subscription key's connection slot on close.
type keyTrackedSession struct {
	speech.Session
	factory *AzureSessionFactory
	keyId   string
	once    sync.Once
}

func (s *keyTrackedSession) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Session.Close()
		if derr := s.factory.rs.SpeechSessionUpdateKeyStatus(s.keyId, redisservice.SessionTaskEnded); derr != nil {
			s.factory.logger.WithError(derr).Warnln("failed to decrement key connections")
		}
	})
	return err
}
