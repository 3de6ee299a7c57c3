package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mynaparrot/plugnmeet-translate/pkg/config"
)

// Resampler converts arbitrary RawFrames into the canonical 16 kHz mono
// 16-bit PCM stream. It keeps the fractional read position and the last
// sample of the previous frame, so one input frame may yield zero or more
// output samples and the stream stays continuous across calls.
//
// Not safe for concurrent use; one Resampler belongs to one forwarder worker.
type Resampler struct {
	srcRate int
	pos     float64
	last    int16
	primed  bool
}

func NewResampler() *Resampler {
	return &Resampler{}
}

// Convert returns the canonical PCM bytes produced from one frame.
// A frame with a new sample rate resets the interpolation state.
func (r *Resampler) Convert(f RawFrame) ([]byte, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("invalid frame format: rate=%d channels=%d", f.SampleRate, f.Channels)
	}

	mono, err := decodeMono(f)
	if err != nil {
		return nil, err
	}

	if f.SampleRate != r.srcRate {
		r.srcRate = f.SampleRate
		r.pos = 0
		r.primed = false
	}

	if f.SampleRate == config.CanonicalSampleRate {
		return encodeS16(mono), nil
	}

	step := float64(f.SampleRate) / float64(config.CanonicalSampleRate)

	src := mono
	if r.primed {
		src = make([]int16, 0, len(mono)+1)
		src = append(src, r.last)
		src = append(src, mono...)
	}
	if len(src) == 0 {
		return nil, nil
	}

	var out []int16
	pos := r.pos
	for int(pos)+1 < len(src) {
		i := int(pos)
		frac := pos - float64(i)
		v := float64(src[i])*(1-frac) + float64(src[i+1])*frac
		out = append(out, int16(v))
		pos += step
	}

	r.last = src[len(src)-1]
	r.primed = true
	r.pos = pos - float64(len(src)-1)

	return encodeS16(out), nil
}

// decodeMono unpacks the frame's samples and averages the channels down to one.
func decodeMono(f RawFrame) ([]int16, error) {
	switch f.Format {
	case SampleFormatS16:
		frameSize := 2 * f.Channels
		if len(f.Data)%frameSize != 0 {
			return nil, fmt.Errorf("s16 frame of %d bytes is not a multiple of %d", len(f.Data), frameSize)
		}
		n := len(f.Data) / frameSize
		mono := make([]int16, n)
		for i := 0; i < n; i++ {
			var sum int32
			for c := 0; c < f.Channels; c++ {
				off := (i*f.Channels + c) * 2
				sum += int32(int16(binary.LittleEndian.Uint16(f.Data[off:])))
			}
			mono[i] = int16(sum / int32(f.Channels))
		}
		return mono, nil

	case SampleFormatF32:
		frameSize := 4 * f.Channels
		if len(f.Data)%frameSize != 0 {
			return nil, fmt.Errorf("f32 frame of %d bytes is not a multiple of %d", len(f.Data), frameSize)
		}
		n := len(f.Data) / frameSize
		mono := make([]int16, n)
		for i := 0; i < n; i++ {
			var sum float64
			for c := 0; c < f.Channels; c++ {
				off := (i*f.Channels + c) * 4
				sum += float64(math.Float32frombits(binary.LittleEndian.Uint32(f.Data[off:])))
			}
			v := sum / float64(f.Channels)
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			mono[i] = int16(v * math.MaxInt16)
		}
		return mono, nil

	default:
		return nil, fmt.Errorf("unknown sample format %d", f.Format)
	}
}

func encodeS16(samples []int16) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
