package audio

import "github.com/mynaparrot/plugnmeet-translate/pkg/config"

// SampleFormat identifies how the samples of a RawFrame are encoded.
type SampleFormat int

const (
	// SampleFormatS16 is 16-bit signed little-endian PCM.
	SampleFormatS16 SampleFormat = iota
	// SampleFormatF32 is 32-bit IEEE float little-endian PCM.
	SampleFormatF32
)

// RawFrame is one chunk of captured audio exactly as the transport delivered
// it. Nothing about it is validated on arrival; the forwarder worker deals
// with malformed frames later, off the capture path.
type RawFrame struct {
	Data       []byte
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// BytesPerCanonicalSample is the size of one sample in the canonical
// 16 kHz mono 16-bit stream the engine consumes.
const BytesPerCanonicalSample = config.CanonicalBitDepth / 8
