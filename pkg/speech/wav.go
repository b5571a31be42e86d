package speech

import (
	"encoding/binary"
	"fmt"
)

// pcm is 16-bit little-endian mono sample data.
type pcm struct {
	Samples    []byte
	SampleRate int
}

// decodeWAV unwraps a RIFF/WAVE file holding 16-bit PCM. Streamed WAV headers
// carry placeholder sizes, so a data chunk longer than the input is read to EOF.
// Multi-channel input keeps only the first channel.
func decodeWAV(data []byte) (pcm, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return pcm{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidAudio)
	}

	var (
		format, channels, bits uint16
		rate                   uint32
		haveFmt                bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) || (id == "data" && size == 0) {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return pcm{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidAudio)
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = binary.LittleEndian.Uint16(data[body+2:])
			rate = binary.LittleEndian.Uint32(data[body+4:])
			bits = binary.LittleEndian.Uint16(data[body+14:])
			haveFmt = true
		case "data":
			if !haveFmt {
				return pcm{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidAudio)
			}
			if format != 1 || bits != 16 {
				return pcm{}, fmt.Errorf("%w: unsupported encoding (format %d, %d bits)", ErrInvalidAudio, format, bits)
			}
			if channels == 0 || rate == 0 {
				return pcm{}, fmt.Errorf("%w: bad fmt chunk", ErrInvalidAudio)
			}
			return pcm{Samples: firstChannel(data[body:end], int(channels)), SampleRate: int(rate)}, nil
		}

		// Chunks are word aligned.
		pos = end + (end-body)%2
	}

	return pcm{}, fmt.Errorf("%w: no data chunk", ErrInvalidAudio)
}

func firstChannel(samples []byte, channels int) []byte {
	frame := 2 * channels
	samples = samples[:len(samples)-len(samples)%frame]
	if channels == 1 {
		return samples
	}
	out := make([]byte, 0, len(samples)/channels)
	for i := 0; i+frame <= len(samples); i += frame {
		out = append(out, samples[i], samples[i+1])
	}
	return out
}

// bigEndian swaps each 16-bit sample, as audio/l16 is network byte order.
func (p pcm) bigEndian() []byte {
	out := make([]byte, len(p.Samples))
	for i := 0; i+1 < len(p.Samples); i += 2 {
		out[i], out[i+1] = p.Samples[i+1], p.Samples[i]
	}
	return out
}

// encodeWAV wraps 16-bit little-endian mono samples in a canonical WAV header.
func encodeWAV(samples []byte, sampleRate int) []byte {
	out := make([]byte, 44, 44+len(samples))
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+len(samples)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], 1)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(out[32:], 2)
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(len(samples)))
	return append(out, samples...)
}
