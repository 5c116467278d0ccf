// Package cloner defines the voice cloning contract: training a voice model
// from uploaded samples and synthesizing speech with it. Concrete backends
// register themselves with this package's factory registry; the variant is
// chosen once at configuration load.
package cloner

import (
	"errors"
	"fmt"
	"time"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/language"
)

// EmbeddingDim is the speaker embedding width shared by all backends.
const EmbeddingDim = 256

// VoiceModel is the artifact produced by training. It is usable for
// synthesis only after Train returns it; a zero VoiceModel is not.
type VoiceModel struct {
	ID         string
	Embedding  []float32
	SampleRate int
	NumSamples int
	CreatedAt  time.Time
}

// Trained reports whether the model came out of a successful Train call.
func (m *VoiceModel) Trained() bool {
	return m != nil && len(m.Embedding) > 0
}

type ClonerInfo struct {
	Name       string
	SampleRate int
}

// Cloner trains voice models and synthesizes speech with them.
type Cloner interface {
	// Train builds a voice model from one or more preprocessed samples.
	Train(samples []*audio.Audio) (*VoiceModel, error)
	// Synthesize renders text as speech in the model's voice.
	Synthesize(model *VoiceModel, text string, lang language.Language) (*audio.Audio, error)
	Info() ClonerInfo
	Close() error
}

// Config is passed to backend factories.
type Config struct {
	ModelsDir  string
	SampleRate int
	MaxSamples int
	UseGPU     bool
}

var (
	ErrNoSamples      = errors.New("cloner: at least one voice sample is required")
	ErrTooManySamples = errors.New("cloner: too many voice samples")
	ErrNotTrained     = errors.New("cloner: voice model is not trained")
)

// MissingDependencyError reports that the real cloning backend cannot run
// because its library or checkpoint weights are not installed.
type MissingDependencyError struct {
	Dependency string
	Err        error
}

func (e *MissingDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing dependency %s: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("missing dependency %s", e.Dependency)
}

func (e *MissingDependencyError) Unwrap() error {
	return e.Err
}

// CheckSampleCount enforces the shared sample window for Train.
func CheckSampleCount(samples []*audio.Audio, max int) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if max > 0 && len(samples) > max {
		return fmt.Errorf("%w: got %d, maximum %d", ErrTooManySamples, len(samples), max)
	}
	return nil
}
