package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVBitDepth is the PCM depth of exported files.
const WAVBitDepth = 16

const renderBlock = 1024

// WriteWAV encodes interleaved stereo frames as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	frames := len(samples) / Channels
	i := 0
	src := SourceFunc(func(dst []float32) {
		n := copy(dst, samples[i:])
		clear(dst[n:])
		i += n
	})
	_, err := RenderWAV(w, src, sampleRate, frames)
	return err
}

// RenderWAV pulls up to frames frames from src and encodes them as 16-bit
// PCM. It stops early once a FinishingSource reports Finished and returns
// the number of frames written.
func RenderWAV(w io.WriteSeeker, src SampleSource, sampleRate, frames int) (int, error) {
	if sampleRate <= 0 {
		return 0, errors.New("audio: sampleRate must be positive")
	}
	enc := wav.NewEncoder(w, sampleRate, WAVBitDepth, Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: sampleRate},
		SourceBitDepth: WAVBitDepth,
	}
	block := make([]float32, renderBlock*Channels)
	ints := make([]int, renderBlock*Channels)
	written := 0
	for written < frames {
		n := min(renderBlock, frames-written)
		src.Process(block[:n*Channels])
		for j, v := range block[:n*Channels] {
			ints[j] = toPCM16(v)
		}
		buf.Data = ints[:n*Channels]
		if err := enc.Write(buf); err != nil {
			return written, fmt.Errorf("encode wav: %w", err)
		}
		written += n
		if fs, ok := src.(FinishingSource); ok && fs.Finished() {
			break
		}
	}
	if err := enc.Close(); err != nil {
		return written, fmt.Errorf("finish wav: %w", err)
	}
	return written, nil
}

func toPCM16(v float32) int {
	if v != v {
		return 0
	}
	s := math.Round(float64(v) * math.MaxInt16)
	return int(max(math.MinInt16, min(math.MaxInt16, s)))
}
