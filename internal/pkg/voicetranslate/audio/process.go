package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ProcessOptions controls sample preprocessing ahead of training.
type ProcessOptions struct {
	TargetRate int
	TargetDB   float64 // loudness target in dBFS, e.g. -20
	SilenceDB  float64 // trim threshold below peak, e.g. 20
}

func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		TargetRate: DefaultSampleRate,
		TargetDB:   -20.0,
		SilenceDB:  20.0,
	}
}

// Preprocess runs the upload pipeline: resample to the target rate, normalize
// loudness, trim leading and trailing silence.
func Preprocess(a *Audio, opts ProcessOptions) (*Audio, error) {
	out := a
	if opts.TargetRate > 0 && a.SampleRate != opts.TargetRate {
		var err error
		out, err = Resample(out, opts.TargetRate)
		if err != nil {
			return nil, err
		}
	}
	out = Normalize(out, opts.TargetDB)
	out = TrimSilence(out, opts.SilenceDB)
	return out, nil
}

// Normalize applies constant gain so the RMS level lands on targetDB dBFS.
// Silent input is returned unchanged.
func Normalize(a *Audio, targetDB float64) *Audio {
	rms := rmsLevel(a.Samples)
	if rms == 0 {
		return a
	}
	currentDB := 20 * math.Log10(rms)
	gain := math.Pow(10, (targetDB-currentDB)/20)

	out := make([]float32, len(a.Samples))
	for i, s := range a.Samples {
		v := float64(s) * gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		out[i] = float32(v)
	}
	return &Audio{Samples: out, SampleRate: a.SampleRate}
}

// TrimSilence removes leading and trailing frames whose RMS sits more than
// thresholdDB below the clip's peak level.
func TrimSilence(a *Audio, thresholdDB float64) *Audio {
	if len(a.Samples) == 0 {
		return a
	}

	var peak float64
	for _, s := range a.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return &Audio{Samples: nil, SampleRate: a.SampleRate}
	}
	threshold := peak * math.Pow(10, -thresholdDB/20)

	const frame = 512
	first, last := -1, -1
	for start := 0; start < len(a.Samples); start += frame {
		end := start + frame
		if end > len(a.Samples) {
			end = len(a.Samples)
		}
		if rmsLevel(a.Samples[start:end]) >= threshold {
			if first < 0 {
				first = start
			}
			last = end
		}
	}
	if first < 0 {
		return &Audio{Samples: nil, SampleRate: a.SampleRate}
	}
	out := make([]float32, last-first)
	copy(out, a.Samples[first:last])
	return &Audio{Samples: out, SampleRate: a.SampleRate}
}

// Split cuts the waveform into consecutive chunks of at most maxDuration
// seconds. A clip already inside the limit comes back as a single chunk; the
// final chunk carries the remainder.
func Split(a *Audio, maxDuration float64) []*Audio {
	chunkSamples := int(maxDuration * float64(a.SampleRate))
	if chunkSamples <= 0 || len(a.Samples) <= chunkSamples {
		return []*Audio{a}
	}
	chunks := make([]*Audio, 0, (len(a.Samples)+chunkSamples-1)/chunkSamples)
	for start := 0; start < len(a.Samples); start += chunkSamples {
		end := start + chunkSamples
		if end > len(a.Samples) {
			end = len(a.Samples)
		}
		out := make([]float32, end-start)
		copy(out, a.Samples[start:end])
		chunks = append(chunks, &Audio{Samples: out, SampleRate: a.SampleRate})
	}
	return chunks
}

// Resample converts the waveform to targetRate.
func Resample(a *Audio, targetRate int) (*Audio, error) {
	if a.SampleRate == targetRate {
		return a, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(a.SampleRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(a.Samples))
	for i, s := range a.Samples {
		input[i] = float64(s)
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]float32, len(output))
	for i, s := range output {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = float32(s)
	}
	return &Audio{Samples: out, SampleRate: targetRate}, nil
}

// Tone renders a decaying test tone with a harmonic, useful for synthetic
// fixtures where a real recording is unnecessary.
func Tone(freq, duration float64, sampleRate int) *Audio {
	n := int(float64(sampleRate) * duration)
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		v := 0.3*math.Sin(2*math.Pi*freq*t) + 0.1*math.Sin(2*math.Pi*2*freq*t)
		v *= math.Exp(-t / (duration * 0.3))
		samples[i] = float32(v)
	}
	return &Audio{Samples: samples, SampleRate: sampleRate}
}

func rmsLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
