package audio

import (
	"testing"
	"time"
)

func TestFrameIngestor_Order(t *testing.T) {
	ing := NewFrameIngestor()

	for i := 0; i < 5; i++ {
		ing.Submit(RawFrame{Data: []byte{byte(i)}, SampleRate: 16000, Channels: 1})
	}
	if ing.Depth() != 5 {
		t.Fatalf("expected depth 5, got %d", ing.Depth())
	}

	for i := 0; i < 5; i++ {
		f, ok := ing.Pop(time.Millisecond)
		if !ok {
			t.Fatalf("expected frame %d", i)
		}
		if f.Data[0] != byte(i) {
			t.Errorf("expected frame %d, got %d", i, f.Data[0])
		}
	}
}

func TestFrameIngestor_PopTimeout(t *testing.T) {
	ing := NewFrameIngestor()

	start := time.Now()
	_, ok := ing.Pop(50 * time.Millisecond)
	if ok {
		t.Error("expected no frame")
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("pop returned before the wait bound")
	}
}

func TestFrameIngestor_StopDrainsQueue(t *testing.T) {
	ing := NewFrameIngestor()

	ing.Submit(RawFrame{Data: []byte{1}})
	ing.Submit(RawFrame{Data: []byte{2}})
	ing.Stop()

	// queued frames survive the stop
	if _, ok := ing.Pop(time.Millisecond); !ok {
		t.Fatal("expected first queued frame after stop")
	}
	if _, ok := ing.Pop(time.Millisecond); !ok {
		t.Fatal("expected second queued frame after stop")
	}

	// drained and stopped: no wait, no frame
	start := time.Now()
	if _, ok := ing.Pop(time.Second); ok {
		t.Error("expected no frame")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("pop waited although the ingestor is stopped and empty")
	}

	// new submissions are dropped
	ing.Submit(RawFrame{Data: []byte{3}})
	if ing.Depth() != 0 {
		t.Errorf("expected dropped submission, depth %d", ing.Depth())
	}
}
