package cloner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voicetranslate/internal/pkg/voicetranslate/audio"
)

func TestCheckSampleCount(t *testing.T) {
	one := []*audio.Audio{{Samples: []float32{0}, SampleRate: 24000}}
	six := make([]*audio.Audio, 6)
	for i := range six {
		six[i] = one[0]
	}

	if err := CheckSampleCount(nil, 5); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty: err = %v, want ErrNoSamples", err)
	}
	if err := CheckSampleCount(one, 5); err != nil {
		t.Errorf("one sample: err = %v, want nil", err)
	}
	if err := CheckSampleCount(six, 5); !errors.Is(err, ErrTooManySamples) {
		t.Errorf("six samples: err = %v, want ErrTooManySamples", err)
	}
	if err := CheckSampleCount(six, 0); err != nil {
		t.Errorf("unlimited: err = %v, want nil", err)
	}
}

func TestVoiceModelTrained(t *testing.T) {
	var nilModel *VoiceModel
	if nilModel.Trained() {
		t.Error("nil model reports trained")
	}
	if (&VoiceModel{}).Trained() {
		t.Error("empty model reports trained")
	}
	m := &VoiceModel{Embedding: make([]float32, EmbeddingDim)}
	if !m.Trained() {
		t.Error("model with embedding reports untrained")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	emb := make([]float32, EmbeddingDim)
	for i := range emb {
		emb[i] = float32(i) / EmbeddingDim
	}
	orig := &VoiceModel{
		ID:         "will-be-replaced",
		Embedding:  emb,
		SampleRate: 24000,
		NumSamples: 3,
		CreatedAt:  time.Unix(1700000000, 0),
	}

	path := filepath.Join(t.TempDir(), "ckpts", "voice-abc.vtvm")
	if err := SaveModel(path, orig); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	got, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if got.ID != "voice-abc" {
		t.Errorf("ID = %q, want voice-abc (from file name)", got.ID)
	}
	if got.SampleRate != 24000 || got.NumSamples != 3 {
		t.Errorf("metadata = rate %d / samples %d, want 24000 / 3", got.SampleRate, got.NumSamples)
	}
	if !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, orig.CreatedAt)
	}
	if len(got.Embedding) != EmbeddingDim {
		t.Fatalf("embedding length = %d, want %d", len(got.Embedding), EmbeddingDim)
	}
	for i := range emb {
		if got.Embedding[i] != emb[i] {
			t.Fatalf("embedding[%d] = %f, want %f", i, got.Embedding[i], emb[i])
		}
	}
}

func TestSaveModel_Untrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vtvm")
	err := SaveModel(path, &VoiceModel{})
	if !errors.Is(err, ErrNotTrained) {
		t.Errorf("SaveModel(untrained) error = %v, want ErrNotTrained", err)
	}
}

func TestLoadModel_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.vtvm")
	if err := os.WriteFile(path, []byte("definitely not a checkpoint"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(path); err == nil {
		t.Error("LoadModel(garbage) should fail")
	}
}

func TestRegistry(t *testing.T) {
	name := "test-backend"
	if IsRegistered(name) {
		t.Fatalf("%q already registered", name)
	}
	Register(name, func(cfg Config) (Cloner, error) {
		return nil, errors.New("factory ran")
	})
	if !IsRegistered(name) {
		t.Fatalf("%q not registered after Register", name)
	}

	_, err := New(name, Config{})
	if err == nil || err.Error() != "factory ran" {
		t.Errorf("New(%q) error = %v, want factory error", name, err)
	}

	if _, err := New("no-such-backend", Config{}); err == nil {
		t.Error("New(unknown) should fail")
	}

	found := false
	for _, n := range ListBackends() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Errorf("ListBackends() missing %q", name)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register("dup-backend", func(cfg Config) (Cloner, error) { return nil, nil })
	Register("dup-backend", func(cfg Config) (Cloner, error) { return nil, nil })
}
