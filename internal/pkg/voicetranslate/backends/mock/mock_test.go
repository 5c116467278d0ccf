package mock

import (
	"errors"
	"testing"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/language"
)

func newTestCloner(t *testing.T) cloner.Cloner {
	t.Helper()
	c, err := NewCloner(cloner.Config{SampleRate: 24000, MaxSamples: 5})
	if err != nil {
		t.Fatalf("NewCloner() error = %v", err)
	}
	return c
}

func TestRegistered(t *testing.T) {
	if !cloner.IsRegistered("mock") {
		t.Fatal("mock backend not registered")
	}
}

func TestTrain(t *testing.T) {
	c := newTestCloner(t)
	samples := []*audio.Audio{audio.Tone(440, 2.0, 24000)}

	m, err := c.Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !m.Trained() {
		t.Fatal("Train() returned an untrained model")
	}
	if len(m.Embedding) != cloner.EmbeddingDim {
		t.Errorf("embedding length = %d, want %d", len(m.Embedding), cloner.EmbeddingDim)
	}
	if m.NumSamples != 1 {
		t.Errorf("NumSamples = %d, want 1", m.NumSamples)
	}
	if m.ID == "" {
		t.Error("model has no ID")
	}
}

func TestTrain_Deterministic(t *testing.T) {
	c := newTestCloner(t)
	samples := []*audio.Audio{audio.Tone(330, 3.0, 24000)}

	m1, err := c.Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	m2, err := c.Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	for i := range m1.Embedding {
		if m1.Embedding[i] != m2.Embedding[i] {
			t.Fatalf("embedding[%d] differs between identical trainings: %f vs %f", i, m1.Embedding[i], m2.Embedding[i])
		}
	}
}

func TestTrain_SampleCount(t *testing.T) {
	c := newTestCloner(t)

	if _, err := c.Train(nil); !errors.Is(err, cloner.ErrNoSamples) {
		t.Errorf("Train(nil) error = %v, want ErrNoSamples", err)
	}

	six := make([]*audio.Audio, 6)
	for i := range six {
		six[i] = audio.Tone(440, 1.0, 24000)
	}
	if _, err := c.Train(six); !errors.Is(err, cloner.ErrTooManySamples) {
		t.Errorf("Train(6 samples) error = %v, want ErrTooManySamples", err)
	}
}

func TestSynthesize(t *testing.T) {
	c := newTestCloner(t)
	m, err := c.Train([]*audio.Audio{audio.Tone(440, 2.0, 24000)})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	lang, _ := language.Lookup("es")
	out, err := c.Synthesize(m, "Hola mundo, esto es una prueba.", lang)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", out.SampleRate)
	}
	if out.Duration() <= 0 {
		t.Error("synthesized audio is empty")
	}
	// Duration tracks text length at 0.1 s per rune.
	want := float64(len([]rune("Hola mundo, esto es una prueba."))) * 0.1
	if got := out.Duration(); got < want-0.01 || got > want+0.01 {
		t.Errorf("Duration = %.2fs, want ~%.2fs", got, want)
	}
}

func TestSynthesize_ShortTextFloor(t *testing.T) {
	c := newTestCloner(t)
	m, _ := c.Train([]*audio.Audio{audio.Tone(440, 2.0, 24000)})

	lang, _ := language.Lookup("en")
	out, err := c.Synthesize(m, "Hi", lang)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.Duration() < 0.5 {
		t.Errorf("Duration = %.2fs, want at least 0.5s", out.Duration())
	}
}

func TestSynthesize_Untrained(t *testing.T) {
	c := newTestCloner(t)
	lang, _ := language.Lookup("en")

	if _, err := c.Synthesize(&cloner.VoiceModel{}, "hello", lang); !errors.Is(err, cloner.ErrNotTrained) {
		t.Errorf("Synthesize(untrained) error = %v, want ErrNotTrained", err)
	}
	if _, err := c.Synthesize(nil, "hello", lang); !errors.Is(err, cloner.ErrNotTrained) {
		t.Errorf("Synthesize(nil model) error = %v, want ErrNotTrained", err)
	}
}
