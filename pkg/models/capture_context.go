package models

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// CaptureContext represents one live capture session established by the
// transport collaborator. Exactly one recognition session may run during it.
type CaptureContext struct {
	ID         string
	RoomId     string
	UserId     string
	SourceLang string
	TargetLang string

	active atomic.Bool
}

func NewCaptureContext(roomId, userId, sourceLang, targetLang string) *CaptureContext {
	cc := &CaptureContext{
		ID:         uuid.NewString(),
		RoomId:     roomId,
		UserId:     userId,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
	cc.active.Store(true)
	return cc
}

// Active reports whether the transport still delivers frames for this context.
func (c *CaptureContext) Active() bool {
	return c.active.Load()
}

// End marks the context inactive; the orchestrator observes it on its next
// poll cycle and shuts the session down.
func (c *CaptureContext) End() {
	c.active.Store(false)
}
