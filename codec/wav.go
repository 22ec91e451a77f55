package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d1nch8g/vocalize/audio"
)

const wavHeaderSize = 44

// wavHeader is the canonical 44-byte RIFF/WAVE header for PCM data.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WAVEncoder collects PCM frames and emits a single WAV container on Flush,
// since the header carries the final data length.
type WAVEncoder struct {
	format audio.Format
	pcm    bytes.Buffer
}

var _ Encoder = (*WAVEncoder)(nil)

func NewWAVEncoder(format audio.Format) (*WAVEncoder, error) {
	if format.SampleRate <= 0 || format.SampleRate != math.Trunc(format.SampleRate) {
		return nil, fmt.Errorf("unsupported sample rate %v", format.SampleRate)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", format.Channels)
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported sample width %d bits", format.BitsPerSample)
	}
	return &WAVEncoder{format: format}, nil
}

func (e *WAVEncoder) MimeType() string { return MimeWAV }

func (e *WAVEncoder) Encode(frame []byte) []byte {
	e.pcm.Write(frame)
	return nil
}

// Flush returns the complete container and resets the encoder. An odd
// trailing byte is dropped so the data stays frame aligned.
func (e *WAVEncoder) Flush() []byte {
	data := e.pcm.Bytes()
	if align := e.format.FrameSize(); align > 0 {
		data = data[:len(data)-len(data)%align]
	}

	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(data)))
	binary.Write(out, binary.LittleEndian, e.header(uint32(len(data))))
	out.Write(data)

	e.pcm.Reset()
	return out.Bytes()
}

func (e *WAVEncoder) header(dataSize uint32) wavHeader {
	channels := uint16(e.format.Channels)
	bits := uint16(e.format.BitsPerSample)
	rate := uint32(e.format.SampleRate)

	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    rate,
		ByteRate:      rate * uint32(channels) * uint32(bits) / 8,
		BlockAlign:    channels * bits / 8,
		BitsPerSample: bits,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// RawEncoder passes PCM frames through unchanged.
type RawEncoder struct{}

var _ Encoder = RawEncoder{}

func NewRawEncoder() RawEncoder { return RawEncoder{} }

func (RawEncoder) MimeType() string { return MimePCM }

func (RawEncoder) Encode(frame []byte) []byte { return frame }

func (RawEncoder) Flush() []byte { return nil }
