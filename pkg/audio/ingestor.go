package audio

import (
	"sync"
	"time"
)

// FrameIngestor accepts raw audio frames pushed by the capture transport.
// Submit never blocks the caller; the transport runs on a real-time path and
// must not depend on back-pressure from us. The queue is unbounded, depth is
// exposed for monitoring.
type FrameIngestor struct {
	mu      sync.Mutex
	queue   []RawFrame
	notify  chan struct{}
	stopped bool
}

func NewFrameIngestor() *FrameIngestor {
	return &FrameIngestor{
		notify: make(chan struct{}, 1),
	}
}

// Submit enqueues one frame and returns immediately.
// Frames submitted after Stop are dropped.
func (i *FrameIngestor) Submit(f RawFrame) {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.queue = append(i.queue, f)
	i.mu.Unlock()

	select {
	case i.notify <- struct{}{}:
	default:
	}
}

// Pop returns the oldest queued frame, waiting up to the given bound when the
// queue is empty. After Stop it keeps returning queued frames until the queue
// is drained, then reports false without waiting.
func (i *FrameIngestor) Pop(wait time.Duration) (RawFrame, bool) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		i.mu.Lock()
		if len(i.queue) > 0 {
			f := i.queue[0]
			i.queue = i.queue[1:]
			i.mu.Unlock()
			return f, true
		}
		stopped := i.stopped
		i.mu.Unlock()

		if stopped {
			return RawFrame{}, false
		}

		select {
		case <-i.notify:
		case <-deadline.C:
			return RawFrame{}, false
		}
	}
}

// Depth reports the number of queued frames.
func (i *FrameIngestor) Depth() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.queue)
}

// Stop marks the ingestor inactive. Already queued frames remain poppable.
func (i *FrameIngestor) Stop() {
	i.mu.Lock()
	i.stopped = true
	i.mu.Unlock()

	select {
	case i.notify <- struct{}{}:
	default:
	}
}

// Stopped reports whether Stop has been called.
func (i *FrameIngestor) Stopped() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopped
}
