package session

import (
	"errors"
	"testing"
	"time"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
)

func sample() *audio.Audio {
	return audio.Tone(440, 2.0, 24000)
}

func trainedModel() *cloner.VoiceModel {
	return &cloner.VoiceModel{
		ID:         "test-model",
		Embedding:  make([]float32, cloner.EmbeddingDim),
		SampleRate: 24000,
		NumSamples: 1,
		CreatedAt:  time.Now(),
	}
}

func TestHappyPath(t *testing.T) {
	s := New("s1")
	if got := s.Snapshot().State; got != StateIdle {
		t.Fatalf("new session state = %s, want idle", got)
	}

	if err := s.AddSamples([]*audio.Audio{sample()}, 5); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}
	if got := s.Snapshot().State; got != StateSamplesUploaded {
		t.Fatalf("state = %s, want samples_uploaded", got)
	}

	samples, err := s.BeginTraining()
	if err != nil {
		t.Fatalf("BeginTraining() error = %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("BeginTraining() returned %d samples, want 1", len(samples))
	}
	if got := s.Snapshot().State; got != StateTraining {
		t.Fatalf("state = %s, want training", got)
	}

	s.CompleteTraining(trainedModel())
	snap := s.Snapshot()
	if snap.State != StateTrained {
		t.Fatalf("state = %s, want trained", snap.State)
	}
	if !snap.HasModel {
		t.Error("trained session reports no model")
	}
	if snap.SampleCount != 0 {
		t.Errorf("samples kept after training: %d", snap.SampleCount)
	}

	model, err := s.BeginGeneration()
	if err != nil {
		t.Fatalf("BeginGeneration() error = %v", err)
	}
	if model.ID != "test-model" {
		t.Errorf("model ID = %q, want test-model", model.ID)
	}
	if got := s.Snapshot().State; got != StateTranslating {
		t.Fatalf("state = %s, want translating", got)
	}

	s.BeginSynthesis()
	if got := s.Snapshot().State; got != StateSynthesizing {
		t.Fatalf("state = %s, want synthesizing", got)
	}

	s.CompleteGeneration(&Result{TranslatedText: "Hola", OutputID: "out-1"})
	snap = s.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("state = %s, want ready", snap.State)
	}
	if snap.Result == nil || snap.Result.TranslatedText != "Hola" {
		t.Errorf("result not recorded: %+v", snap.Result)
	}
}

func TestTransitionError_Message(t *testing.T) {
	err := &TransitionError{From: StateTraining, Op: "upload samples"}
	want := "cannot upload samples while session is training"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if StateError.String() != "error" {
		t.Errorf("StateError.String() = %q, want error", StateError.String())
	}
}

func TestAddSamples_Cap(t *testing.T) {
	s := New("s1")
	three := []*audio.Audio{sample(), sample(), sample()}
	if err := s.AddSamples(three, 5); err != nil {
		t.Fatalf("AddSamples(3 of 5) error = %v", err)
	}
	err := s.AddSamples(three, 5)
	if !errors.Is(err, cloner.ErrTooManySamples) {
		t.Fatalf("AddSamples over cap error = %v, want ErrTooManySamples", err)
	}
	// A rejected upload keeps the earlier samples.
	if got := s.Snapshot().SampleCount; got != 3 {
		t.Errorf("SampleCount = %d, want 3", got)
	}
}

func TestAddSamples_DuringTraining(t *testing.T) {
	s := New("s1")
	s.AddSamples([]*audio.Audio{sample()}, 5)
	if _, err := s.BeginTraining(); err != nil {
		t.Fatal(err)
	}

	err := s.AddSamples([]*audio.Audio{sample()}, 5)
	var se *TransitionError
	if !errors.As(err, &se) {
		t.Fatalf("AddSamples during training error = %v, want *TransitionError", err)
	}
	if se.From != StateTraining {
		t.Errorf("TransitionError.From = %s, want training", se.From)
	}
}

func TestBeginTraining_NoSamples(t *testing.T) {
	s := New("s1")
	if _, err := s.BeginTraining(); err == nil {
		t.Fatal("BeginTraining() from idle should fail")
	}

	// Trained sessions without fresh samples cannot retrain.
	s2 := New("s2")
	s2.AddSamples([]*audio.Audio{sample()}, 5)
	s2.BeginTraining()
	s2.CompleteTraining(trainedModel())
	if _, err := s2.BeginTraining(); !errors.Is(err, cloner.ErrNoSamples) {
		t.Errorf("retrain without samples error = %v, want ErrNoSamples", err)
	}
}

func TestBeginGeneration_NotTrained(t *testing.T) {
	s := New("s1")
	if _, err := s.BeginGeneration(); err == nil {
		t.Fatal("BeginGeneration() from idle should fail")
	}

	s.AddSamples([]*audio.Audio{sample()}, 5)
	_, err := s.BeginGeneration()
	var se *TransitionError
	if !errors.As(err, &se) {
		t.Fatalf("BeginGeneration(samples_uploaded) error = %v, want *TransitionError", err)
	}
}

func TestFail_KeepsModel(t *testing.T) {
	s := New("s1")
	s.AddSamples([]*audio.Audio{sample()}, 5)
	s.BeginTraining()
	s.CompleteTraining(trainedModel())

	if _, err := s.BeginGeneration(); err != nil {
		t.Fatal(err)
	}
	s.Fail(errors.New("synthesis exploded"))

	snap := s.Snapshot()
	if snap.State != StateError {
		t.Fatalf("state = %s, want error", snap.State)
	}
	if !snap.HasModel {
		t.Error("failed synthesis rolled back the trained model")
	}
	if snap.LastError == "" {
		t.Error("failure message not recorded")
	}

	// Error state is recoverable: generation can be retried.
	if _, err := s.BeginGeneration(); err != nil {
		t.Errorf("BeginGeneration() after failure error = %v", err)
	}
}

func TestRetrain_LastWriteWins(t *testing.T) {
	s := New("s1")
	s.AddSamples([]*audio.Audio{sample()}, 5)
	s.BeginTraining()
	first := trainedModel()
	s.CompleteTraining(first)

	s.AddSamples([]*audio.Audio{sample()}, 5)
	s.BeginTraining()
	second := trainedModel()
	second.ID = "second"
	s.CompleteTraining(second)

	if got := s.Model(); got.ID != "second" {
		t.Errorf("Model().ID = %q, want second", got.ID)
	}
}

func TestClearSamples(t *testing.T) {
	s := New("s1")
	s.AddSamples([]*audio.Audio{sample()}, 5)
	s.ClearSamples()
	snap := s.Snapshot()
	if snap.SampleCount != 0 {
		t.Errorf("SampleCount = %d, want 0", snap.SampleCount)
	}
	if snap.State != StateIdle {
		t.Errorf("state = %s, want idle", snap.State)
	}
}

func TestStore(t *testing.T) {
	store := NewStore(time.Hour)
	defer store.Close()

	if store.Get("nope") != nil {
		t.Error("Get(unknown) should return nil")
	}

	sess := store.Create()
	if sess.ID == "" {
		t.Fatal("created session has no ID")
	}
	if got := store.Get(sess.ID); got != sess {
		t.Error("Get() did not return the created session")
	}
	if got := store.GetOrCreate(sess.ID); got != sess {
		t.Error("GetOrCreate(known) made a new session")
	}

	fresh := store.GetOrCreate("expired-or-bogus")
	if fresh == sess {
		t.Error("GetOrCreate(unknown) reused an existing session")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}
