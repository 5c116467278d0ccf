// Package session holds per-browser-session state: uploaded samples, the
// trained voice model, and the last generated result. Sessions live in
// process memory only and follow a linear state machine; any failure moves
// to Error, which is recoverable by re-submission.
package session

import (
	"fmt"
	"sync"
	"time"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
)

type State int

const (
	StateIdle State = iota
	StateSamplesUploaded
	StateTraining
	StateTrained
	StateTranslating
	StateSynthesizing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSamplesUploaded:
		return "samples_uploaded"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StateTranslating:
		return "translating"
	case StateSynthesizing:
		return "synthesizing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionError reports an operation attempted from the wrong state.
type TransitionError struct {
	From State
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.From)
}

// Result is the output of one generate submission.
type Result struct {
	TranslatedText string
	OutputID       string
	SampleRate     int
	Duration       float64
	SourceLang     string
	TargetLang     string
	CreatedAt      time.Time
}

// Session is safe for concurrent use; the form UI is not expected to submit
// concurrently, but nothing stops a second tab.
type Session struct {
	ID string

	mu        sync.Mutex
	state     State
	samples   []*audio.Audio
	model     *cloner.VoiceModel
	result    *Result
	lastError string
	updatedAt time.Time
}

func New(id string) *Session {
	return &Session{
		ID:        id,
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

// AddSamples appends validated samples, capped at max in total.
func (s *Session) AddSamples(samples []*audio.Audio, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateSamplesUploaded, StateTrained, StateReady, StateError:
	default:
		return &TransitionError{From: s.state, Op: "upload samples"}
	}
	if max > 0 && len(s.samples)+len(samples) > max {
		return fmt.Errorf("%w: session holds %d, adding %d, maximum %d",
			cloner.ErrTooManySamples, len(s.samples), len(samples), max)
	}
	s.samples = append(s.samples, samples...)
	s.setState(StateSamplesUploaded)
	return nil
}

// ClearSamples drops uploaded samples, e.g. before a fresh retrain.
func (s *Session) ClearSamples() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	if s.state == StateSamplesUploaded {
		s.setState(StateIdle)
	}
}

// BeginTraining moves the session into Training and returns the samples to
// train on. Only one training runs per session; a retrain overwrites the
// previous model when it completes (last write wins).
func (s *Session) BeginTraining() ([]*audio.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSamplesUploaded, StateTrained, StateReady, StateError:
	default:
		return nil, &TransitionError{From: s.state, Op: "train"}
	}
	if len(s.samples) == 0 {
		return nil, cloner.ErrNoSamples
	}
	s.setState(StateTraining)
	out := make([]*audio.Audio, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// CompleteTraining installs the trained model and discards the samples that
// produced it.
func (s *Session) CompleteTraining(model *cloner.VoiceModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.samples = nil
	s.lastError = ""
	s.setState(StateTrained)
}

// BeginGeneration checks a voice model exists and moves to Translating.
func (s *Session) BeginGeneration() (*cloner.VoiceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateTrained, StateReady, StateError:
	default:
		return nil, &TransitionError{From: s.state, Op: "generate"}
	}
	if !s.model.Trained() {
		return nil, cloner.ErrNotTrained
	}
	s.setState(StateTranslating)
	return s.model, nil
}

// BeginSynthesis marks the translation step done.
func (s *Session) BeginSynthesis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTranslating {
		s.setState(StateSynthesizing)
	}
}

// CompleteGeneration records the result and moves to Ready.
func (s *Session) CompleteGeneration(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.lastError = ""
	s.setState(StateReady)
}

// Fail moves to Error but keeps whatever survived: a failed synthesis does
// not roll back an already-trained model.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	s.setState(StateError)
}

// Model returns the trained model, or nil.
func (s *Session) Model() *cloner.VoiceModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel installs a model restored from a checkpoint.
func (s *Session) SetModel(model *cloner.VoiceModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.setState(StateTrained)
}

// Snapshot is an immutable view for rendering.
type Snapshot struct {
	ID          string
	State       State
	SampleCount int
	HasModel    bool
	Result      *Result
	LastError   string
	UpdatedAt   time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:          s.ID,
		State:       s.state,
		SampleCount: len(s.samples),
		HasModel:    s.model.Trained(),
		Result:      s.result,
		LastError:   s.lastError,
		UpdatedAt:   s.updatedAt,
	}
}

func (s *Session) setState(next State) {
	s.state = next
	s.updatedAt = time.Now()
}
