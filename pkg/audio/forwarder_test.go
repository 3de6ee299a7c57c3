package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeSink struct {
	mu     sync.Mutex
	data   []byte
	failAt int
	writes int
}

func (s *fakeSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failAt > 0 && s.writes == s.failAt {
		return 0, errors.New("stream broken")
	}
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *fakeSink) bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestForwarder_ConvertsAndWrites(t *testing.T) {
	ing := NewFrameIngestor()
	sink := &fakeSink{}
	fw := NewForwarder(ing, sink, testLogger())
	fw.Start()

	// 3 frames of 20ms at 48kHz mono
	for i := 0; i < 3; i++ {
		ing.Submit(frame20ms48k(500))
	}

	deadline := time.After(3 * time.Second)
	for sink.bytes() < 1900 {
		select {
		case <-deadline:
			t.Fatalf("sink received only %d bytes", sink.bytes())
		case <-time.After(10 * time.Millisecond):
		}
	}

	ing.Stop()
	select {
	case <-fw.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not exit after stop")
	}

	// 60ms at 16kHz s16 is 1920 bytes, minus at most the carry sample
	if got := sink.bytes(); got < 1916 || got > 1920 {
		t.Errorf("expected ~1920 bytes of canonical PCM, got %d", got)
	}
}

func TestForwarder_BadFrameDoesNotStopLoop(t *testing.T) {
	ing := NewFrameIngestor()
	sink := &fakeSink{}
	fw := NewForwarder(ing, sink, testLogger())
	fw.Start()

	ing.Submit(RawFrame{Data: []byte{1, 2, 3}, SampleRate: 48000, Channels: 2, Format: SampleFormatS16})
	ing.Submit(frame20ms48k(100))

	deadline := time.After(3 * time.Second)
	for sink.bytes() == 0 {
		select {
		case <-deadline:
			t.Fatal("good frame was not forwarded after a bad one")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ing.Stop()
	<-fw.Done()
}

func TestForwarder_WriteErrorDoesNotStopLoop(t *testing.T) {
	ing := NewFrameIngestor()
	sink := &fakeSink{failAt: 1}
	fw := NewForwarder(ing, sink, testLogger())
	fw.Start()

	ing.Submit(frame20ms48k(100))
	ing.Submit(frame20ms48k(100))

	deadline := time.After(3 * time.Second)
	for sink.bytes() == 0 {
		select {
		case <-deadline:
			t.Fatal("second frame was not forwarded after a failed write")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ing.Stop()
	<-fw.Done()
}
