package audioGuide

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"
	"strings"

	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const (
	defaultSampleRate = 24000
	defaultChannels   = 1
	bitsPerSample     = 16
)

// ToWAV wraps raw 16-bit little-endian PCM (audio/L16, audio/pcm) in a RIFF
// header. Audio that is already WAV is returned as is.
func ToWAV(a *generativeAI.Audio) ([]byte, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, fmt.Errorf("%w: no audio returned", types.ErrUpstreamUnavailable)
	}
	mediaType, params, err := mime.ParseMediaType(a.MIMEType)
	if err != nil {
		// Gemini TTS omits the type on some responses; the payload is still PCM.
		mediaType, params = "audio/l16", nil
	}
	switch strings.ToLower(mediaType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return a.Data, nil
	case "audio/l16", "audio/pcm":
	default:
		return nil, fmt.Errorf("%w: unexpected audio type %q", types.ErrUpstreamUnavailable, a.MIMEType)
	}

	rate := intParam(params, "rate", defaultSampleRate)
	channels := intParam(params, "channels", defaultChannels)

	blockAlign := channels * bitsPerSample / 8
	header := struct {
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
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(a.Data)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(rate),
		ByteRate:      uint32(rate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(a.Data)),
	}

	var buf bytes.Buffer
	buf.Grow(44 + len(a.Data))
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing wav header: %w", err)
	}
	buf.Write(a.Data)
	return buf.Bytes(), nil
}

func intParam(params map[string]string, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
