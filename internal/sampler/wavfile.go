package sampler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("sampler: not a valid WAV file")

// DecodeWAV reads a PCM WAV stream into a mono sample at its native rate.
// Multi-channel files are averaged down to mono.
func DecodeWAV(r io.ReadSeeker, name string) (*Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	chans := buf.Format.NumChannels
	if chans <= 0 {
		chans = 1
	}
	frames := len(buf.Data) / chans
	if frames == 0 {
		return nil, ErrEmptyAudio
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	var scale, offset float32 = 1, 0
	switch {
	case depth == 8:
		// 8-bit WAV is unsigned.
		scale, offset = 1.0/128, 128
	case depth > 8:
		scale = 1 / float32(int64(1)<<(depth-1))
	}

	data := make([]float32, frames)
	for i := range data {
		var sum float32
		for c := range chans {
			sum += (float32(buf.Data[i*chans+c]) - offset) * scale
		}
		data[i] = sum / float32(chans)
	}
	return &Sample{Name: name, Data: data, Rate: buf.Format.SampleRate}, nil
}

// LoadWAV decodes r into slot i.
func (s *Sampler) LoadWAV(i int, r io.ReadSeeker, name string) error {
	if i < 0 || i >= SlotCount {
		return ErrBadSlot
	}
	smp, err := DecodeWAV(r, name)
	if err != nil {
		return err
	}
	return s.SetSample(i, smp)
}

// LoadFile decodes the WAV file at path into slot i.
func (s *Sampler) LoadFile(i int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s.LoadWAV(i, f, name)
}

// LoadDir loads the .wav files of dir in name order into consecutive slots,
// starting at slot 0. It returns how many slots were filled. Slots past the
// last file keep their current sample.
func (s *Sampler) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read sample dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	loaded := 0
	for _, n := range names {
		if loaded == SlotCount {
			break
		}
		if err := s.LoadFile(loaded, filepath.Join(dir, n)); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// SampleAt returns the sample held by slot i.
func (s *Sampler) SampleAt(i int) (*Sample, error) {
	if i < 0 || i >= SlotCount {
		return nil, ErrBadSlot
	}
	smp := s.slots[i].sample.Load()
	if smp == nil {
		return nil, ErrNoSample
	}
	return smp, nil
}
