package audio

import (
	"io"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
	"github.com/sirupsen/logrus"
)

// Forwarder is the single worker loop between the ingestor and the
// recognition engine's input stream. Each iteration pops one frame with a
// bounded wait, converts it to canonical PCM and writes the bytes to the
// sink. A bad frame or a failed write is logged and the loop continues; only
// Stop on the ingestor (with the queue drained) ends the loop.
type Forwarder struct {
	ingestor  *FrameIngestor
	resampler *Resampler
	sink      io.Writer
	logger    *logrus.Entry
	done      chan struct{}
}

func NewForwarder(ingestor *FrameIngestor, sink io.Writer, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		ingestor:  ingestor,
		resampler: NewResampler(),
		sink:      sink,
		logger:    logger.WithField("worker", "audio_forwarder"),
		done:      make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Forwarder) Start() {
	go w.run()
}

func (w *Forwarder) run() {
	defer close(w.done)

	for {
		f, ok := w.ingestor.Pop(config.FrameQueueWait)
		if !ok {
			if w.ingestor.Stopped() && w.ingestor.Depth() == 0 {
				return
			}
			// empty wait is not a failure, it just lets us observe shutdown
			continue
		}

		pcm, err := w.resampler.Convert(f)
		if err != nil {
			w.logger.WithError(err).Warnln("dropping frame")
			continue
		}
		if len(pcm) == 0 {
			continue
		}

		if _, err := w.sink.Write(pcm); err != nil {
			w.logger.WithError(err).Errorln("failed to write to recognition stream")
		}
	}
}

// Done is closed once the worker has exited.
func (w *Forwarder) Done() <-chan struct{} {
	return w.done
}
