// Package openvoice is the real cloning backend. It runs two ONNX sessions:
// a speaker encoder that turns reference audio into an embedding, and an
// acoustic model that renders phoneme tokens conditioned on that embedding.
// Checkpoints are installed out of band under <models_dir>/openvoice/.
package openvoice

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	ort "github.com/yalue/onnxruntime_go"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/language"
	"voicetranslate/internal/pkg/voicetranslate/ortenv"
)

func init() {
	cloner.Register("openvoice", NewCloner)
}

const (
	encoderModel = "se.onnx"
	synthModel   = "synth.onnx"
)

type Cloner struct {
	encoder    *ort.DynamicAdvancedSession
	synth      *ort.DynamicAdvancedSession
	phonemizer *Phonemizer
	tokenizer  *Tokenizer
	sampleRate int
	maxSamples int
}

func NewCloner(cfg cloner.Config) (cloner.Cloner, error) {
	dir := filepath.Join(cfg.ModelsDir, "openvoice")
	encoderPath := filepath.Join(dir, encoderModel)
	synthPath := filepath.Join(dir, synthModel)
	for _, p := range []string{encoderPath, synthPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, &cloner.MissingDependencyError{
				Dependency: "openvoice checkpoints",
				Err:        fmt.Errorf("%s not found (install the voice cloning models under %s)", filepath.Base(p), dir),
			}
		}
	}

	if err := ortenv.Initialize(); err != nil {
		return nil, &cloner.MissingDependencyError{Dependency: "onnxruntime library", Err: err}
	}

	opts, err := ortenv.SessionOptions(cfg.UseGPU)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	encoder, err := ort.NewDynamicAdvancedSession(
		encoderPath,
		[]string{"audio"},
		[]string{"embedding"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create speaker encoder session: %w", err)
	}

	synth, err := ort.NewDynamicAdvancedSession(
		synthPath,
		[]string{"input_ids", "style", "speed"},
		[]string{"waveform"},
		opts,
	)
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("failed to create synthesis session: %w", err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	return &Cloner{
		encoder:    encoder,
		synth:      synth,
		phonemizer: NewPhonemizer(),
		tokenizer:  NewTokenizer(),
		sampleRate: sampleRate,
		maxSamples: cfg.MaxSamples,
	}, nil
}

// Train encodes every sample and averages the embeddings into one voice
// model. Samples are expected to be preprocessed (mono, pipeline rate).
func (c *Cloner) Train(samples []*audio.Audio) (*cloner.VoiceModel, error) {
	if err := cloner.CheckSampleCount(samples, c.maxSamples); err != nil {
		return nil, err
	}

	sum := make([]float64, cloner.EmbeddingDim)
	for i, s := range samples {
		embedding, err := c.encodeSample(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sample %d: %w", i, err)
		}
		if len(embedding) != cloner.EmbeddingDim {
			return nil, fmt.Errorf("speaker encoder returned %d dims, want %d", len(embedding), cloner.EmbeddingDim)
		}
		for j, v := range embedding {
			sum[j] += float64(v)
		}
	}

	embedding := make([]float32, cloner.EmbeddingDim)
	var norm float64
	for j, v := range sum {
		mean := v / float64(len(samples))
		embedding[j] = float32(mean)
		norm += mean * mean
	}
	if norm > 0 {
		scale := 1 / float32(math.Sqrt(norm))
		for j := range embedding {
			embedding[j] *= scale
		}
	}

	return &cloner.VoiceModel{
		ID:         uuid.NewString(),
		Embedding:  embedding,
		SampleRate: c.sampleRate,
		NumSamples: len(samples),
		CreatedAt:  time.Now(),
	}, nil
}

func (c *Cloner) encodeSample(s *audio.Audio) ([]float32, error) {
	if len(s.Samples) == 0 {
		return nil, fmt.Errorf("sample is empty")
	}
	audioTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(s.Samples))), s.Samples)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio tensor: %w", err)
	}
	defer audioTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := c.encoder.Run([]ort.Value{audioTensor}, outputs); err != nil {
		return nil, fmt.Errorf("failed to run speaker encoder: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from speaker encoder")
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := outputTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (c *Cloner) Synthesize(model *cloner.VoiceModel, text string, lang language.Language) (*audio.Audio, error) {
	if !model.Trained() {
		return nil, cloner.ErrNotTrained
	}

	phonemes := c.phonemizer.Phonemize(text, lang)
	tokens := c.tokenizer.Encode(phonemes)
	if len(tokens) <= 1 {
		return nil, fmt.Errorf("failed to tokenize text")
	}

	inputIdsTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tokens))), tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputIdsTensor.Destroy()

	styleTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(model.Embedding))), model.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create style tensor: %w", err)
	}
	defer styleTensor.Destroy()

	speedData := []float32{1.0}
	speedTensor, err := ort.NewTensor(ort.NewShape(1), speedData)
	if err != nil {
		return nil, fmt.Errorf("failed to create speed tensor: %w", err)
	}
	defer speedTensor.Destroy()

	inputs := []ort.Value{inputIdsTensor, styleTensor, speedTensor}
	outputs := make([]ort.Value, 1)

	if err := c.synth.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from model")
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := outputTensor.GetData()
	samples := make([]float32, len(data))
	copy(samples, data)

	return audio.NewAudio(samples, c.sampleRate), nil
}

func (c *Cloner) Info() cloner.ClonerInfo {
	return cloner.ClonerInfo{
		Name:       "openvoice",
		SampleRate: c.sampleRate,
	}
}

func (c *Cloner) Close() error {
	if c.encoder != nil {
		if err := c.encoder.Destroy(); err != nil {
			return err
		}
		c.encoder = nil
	}
	if c.synth != nil {
		if err := c.synth.Destroy(); err != nil {
			return err
		}
		c.synth = nil
	}
	return nil
}
