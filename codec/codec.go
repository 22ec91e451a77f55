package codec

import "github.com/d1nch8g/vocalize/audio"

const (
	MimeWAV = "audio/wav"
	MimePCM = "audio/pcm"
)

// Encoder turns captured PCM frames into chunks of a container format.
// Encode is called once per captured frame and may return nil when the
// encoder buffers; Flush is called once after capture stops.
type Encoder interface {
	MimeType() string
	Encode(frame []byte) []byte
	Flush() []byte
}

// Readiness is the outcome of codec registration.
type Readiness int

const (
	Ready Readiness = iota
	Degraded
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "degraded"
}

// Factory creates encoders for a negotiated capture format.
type Factory func(format audio.Format) (Encoder, error)
