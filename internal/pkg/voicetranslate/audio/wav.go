package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	// DefaultSampleRate is the pipeline-wide synthesis rate.
	DefaultSampleRate = 24000
	NumChannels       = 1
	BitsPerSample     = 16
)

// Audio is a mono float32 waveform.
type Audio struct {
	Samples    []float32
	SampleRate int
}

// Meta describes a decoded file as it was on disk, before any downmixing.
type Meta struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Samples       int
	Duration      float64
}

func NewAudio(samples []float32, sampleRate int) *Audio {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Audio{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// EncodeWAV writes the waveform as 16-bit mono PCM RIFF.
func (a *Audio) EncodeWAV(w io.Writer) error {
	numSamples := len(a.Samples)
	dataSize := numSamples * NumChannels * (BitsPerSample / 8)
	fileSize := 36 + dataSize

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(fileSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(1)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(NumChannels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(a.SampleRate)); err != nil {
		return err
	}
	byteRate := a.SampleRate * NumChannels * (BitsPerSample / 8)
	if err := binary.Write(w, binary.LittleEndian, uint32(byteRate)); err != nil {
		return err
	}
	blockAlign := NumChannels * (BitsPerSample / 8)
	if err := binary.Write(w, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(BitsPerSample)); err != nil {
		return err
	}

	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return err
	}

	buf := make([]byte, 2*numSamples)
	for i, sample := range a.Samples {
		clamped := sample
		if clamped > 1.0 {
			clamped = 1.0
		} else if clamped < -1.0 {
			clamped = -1.0
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(clamped*math.MaxInt16)))
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}

	return nil
}

func (a *Audio) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	return a.EncodeWAV(f)
}

func LoadWAV(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	a, _, err := DecodeWAV(f)
	return a, err
}

// DecodeWAV parses a RIFF/WAVE stream. PCM 8/16/24-bit and IEEE float32 are
// supported; stereo input is downmixed to mono. The returned Meta reflects
// the file as stored, not the downmixed result.
func DecodeWAV(r io.Reader) (*Audio, *Meta, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stream: %w", err)
	}
	if len(raw) < 12 || !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return nil, nil, sniffContainer(raw)
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
		data       []byte
		haveFmt    bool
	)

	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		pos += 8
		if size < 0 || pos+size > len(raw) {
			// Tolerate a data chunk size that overshoots the file; some
			// encoders leave it stale when streaming.
			if id == "data" && pos < len(raw) {
				size = len(raw) - pos
			} else {
				return nil, nil, &ValidationError{Reason: fmt.Sprintf("truncated %q chunk", id)}
			}
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, nil, &ValidationError{Reason: "fmt chunk too small"}
			}
			format = binary.LittleEndian.Uint16(raw[pos:])
			channels = int(binary.LittleEndian.Uint16(raw[pos+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[pos+4:]))
			bits = int(binary.LittleEndian.Uint16(raw[pos+14:]))
			haveFmt = true
		case "data":
			data = raw[pos : pos+size]
		}
		pos += size
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}

	if !haveFmt {
		return nil, nil, &ValidationError{Reason: "missing fmt chunk"}
	}
	if data == nil {
		return nil, nil, &ValidationError{Reason: "missing data chunk"}
	}
	if channels < 1 || channels > 2 {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("unsupported channel count %d", channels)}
	}
	if sampleRate <= 0 {
		return nil, nil, &ValidationError{Reason: "invalid sample rate"}
	}

	samples, err := decodeFrames(format, bits, data)
	if err != nil {
		return nil, nil, err
	}

	frames := len(samples) / channels
	meta := &Meta{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bits,
		Samples:       frames,
		Duration:      float64(frames) / float64(sampleRate),
	}

	mono := samples
	if channels == 2 {
		mono = make([]float32, frames)
		for i := 0; i < frames; i++ {
			mono[i] = (samples[2*i] + samples[2*i+1]) / 2
		}
	}

	return &Audio{Samples: mono, SampleRate: sampleRate}, meta, nil
}

func decodeFrames(format uint16, bits int, data []byte) ([]float32, error) {
	switch {
	case format == 1 && bits == 16:
		n := len(data) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768.0
		}
		return out, nil
	case format == 1 && bits == 8:
		out := make([]float32, len(data))
		for i, b := range data {
			out[i] = (float32(b) - 128) / 128.0
		}
		return out, nil
	case format == 1 && bits == 24:
		n := len(data) / 3
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(data[3*i]) | int32(data[3*i+1])<<8 | int32(data[3*i+2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			out[i] = float32(v) / 8388608.0
		}
		return out, nil
	case format == 3 && bits == 32:
		n := len(data) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return out, nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported sample encoding (format %d, %d-bit)", format, bits)}
	}
}

// sniffContainer classifies a non-WAV payload. Known compressed containers
// report a CodecError so the caller can tell "install a codec backend" apart
// from garbage input.
func sniffContainer(raw []byte) error {
	if len(raw) == 0 {
		return &ValidationError{Reason: "empty file"}
	}
	switch {
	case len(raw) >= 3 && bytes.Equal(raw[0:3], []byte("ID3")),
		len(raw) >= 2 && raw[0] == 0xFF && raw[1]&0xE0 == 0xE0:
		return &CodecError{Format: "mp3"}
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte("fLaC")):
		return &CodecError{Format: "flac"}
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte("OggS")):
		return &CodecError{Format: "ogg"}
	case len(raw) >= 12 && bytes.Equal(raw[4:8], []byte("ftyp")):
		return &CodecError{Format: "m4a"}
	default:
		return &ValidationError{Reason: "not a RIFF/WAVE file"}
	}
}
