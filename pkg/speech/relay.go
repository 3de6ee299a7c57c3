package speech

import (
	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/sirupsen/logrus"
)

// Relay is the single-hop queue between the engine's callback context and the
// orchestrator's poll context. Publish never blocks and never errors; if the
// consumer falls behind far enough to fill the buffer, the event is dropped
// and logged. The authoritative record is the transcript store, not this
// transient queue.
type Relay struct {
	events chan TranslationEvent
	logger *logrus.Entry
}

func NewRelay(logger *logrus.Logger) *Relay {
	return &Relay{
		events: make(chan TranslationEvent, config.DefaultResultRelaySize),
		logger: logger.WithField("component", "result_relay"),
	}
}

// Publish enqueues one event from the engine callback context.
func (r *Relay) Publish(ev TranslationEvent) {
	select {
	case r.events <- ev:
	default:
		r.logger.WithField("original", ev.OriginalText).Warnln("relay full, dropping event")
	}
}

// Drain removes and returns every event currently queued, in emission order,
// without blocking.
func (r *Relay) Drain() []TranslationEvent {
	var out []TranslationEvent
	for {
		select {
		case ev := <-r.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Len reports the number of queued events.
func (r *Relay) Len() int {
	return len(r.events)
}
