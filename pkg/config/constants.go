package config

import "time"

const (
	// canonical PCM format, the only one the recognition engine accepts
	CanonicalSampleRate = 16000
	CanonicalBitDepth   = 16
	CanonicalChannels   = 1

	// all the bounded wait values
	FrameQueueWait                           = 1 * time.Second
	WaitBeforeSpeechServicesOnAfterRoomEnded = 3 * time.Second

	DefaultResultRelaySize     = 256
	DefaultSessionStartWorkers = 4

	RecognitionFailedMsg        = "Recognition failed. Check Azure credentials."
	RecognitionConnectFailedMsg = "Azure connection failed. Check credentials."
)
