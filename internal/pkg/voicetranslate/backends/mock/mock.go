// Package mock is the cloning backend used when the real model weights are
// not installed. Training derives a deterministic embedding from sample
// statistics and synthesis renders a pitch-modulated tone, so the full
// upload → train → generate flow works end to end without any checkpoints.
package mock

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/language"
)

func init() {
	cloner.Register("mock", NewCloner)
}

type Cloner struct {
	sampleRate int
	maxSamples int
}

func NewCloner(cfg cloner.Config) (cloner.Cloner, error) {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Cloner{
		sampleRate: sampleRate,
		maxSamples: cfg.MaxSamples,
	}, nil
}

// Train always succeeds given at least one sample. The embedding is a pure
// function of the input waveforms, so retraining on the same samples yields
// the same model.
func (c *Cloner) Train(samples []*audio.Audio) (*cloner.VoiceModel, error) {
	if err := cloner.CheckSampleCount(samples, c.maxSamples); err != nil {
		return nil, err
	}

	var rms, zcr, peak, dur float64
	for _, s := range samples {
		rms += rmsOf(s.Samples)
		zcr += zeroCrossingRate(s.Samples)
		peak += peakOf(s.Samples)
		dur += s.Duration()
	}
	n := float64(len(samples))
	rms, zcr, peak, dur = rms/n, zcr/n, peak/n, dur/n

	embedding := make([]float32, cloner.EmbeddingDim)
	for i := range embedding {
		phase := float64(i+1) * (1 + rms*7 + zcr*13)
		embedding[i] = float32(math.Sin(phase) * (0.5 + peak/2) * math.Tanh(dur/10+0.1))
	}

	return &cloner.VoiceModel{
		ID:         uuid.NewString(),
		Embedding:  embedding,
		SampleRate: c.sampleRate,
		NumSamples: len(samples),
		CreatedAt:  time.Now(),
	}, nil
}

// Synthesize renders a tone whose pitch and vibrato are driven by the
// embedding. Duration scales with text length so playback feels proportional
// to the input.
func (c *Cloner) Synthesize(model *cloner.VoiceModel, text string, lang language.Language) (*audio.Audio, error) {
	if !model.Trained() {
		return nil, cloner.ErrNotTrained
	}
	if text == "" {
		return nil, fmt.Errorf("mock: text is empty")
	}

	duration := float64(len([]rune(text))) * 0.1
	if duration < 0.5 {
		duration = 0.5
	}

	base := 220 + 220*math.Abs(float64(model.Embedding[0]))
	vibratoDepth := 0.05 + 0.05*math.Abs(float64(model.Embedding[1]))
	vibratoRate := 4 + 4*math.Abs(float64(model.Embedding[2]))

	n := int(float64(c.sampleRate) * duration)
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(c.sampleRate)
		f := base * (1 + vibratoDepth*math.Sin(2*math.Pi*vibratoRate*t))
		v := 0.3 * math.Sin(2*math.Pi*f*t)
		v *= 1 + 0.1*math.Sin(2*math.Pi*2*t) // slow amplitude drift
		samples[i] = float32(v)
	}

	return audio.NewAudio(samples, c.sampleRate), nil
}

func (c *Cloner) Info() cloner.ClonerInfo {
	return cloner.ClonerInfo{
		Name:       "mock",
		SampleRate: c.sampleRate,
	}
}

func (c *Cloner) Close() error {
	return nil
}

func rmsOf(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

func peakOf(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}
