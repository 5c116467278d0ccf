package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/language"
	"voicetranslate/internal/pkg/voicetranslate/session"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type languageInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := s.translator.Languages()
	out := make([]languageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageInfo{Code: l.Code, Name: l.Name, NativeName: l.NativeName})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"languages":      out,
		"default_source": s.cfg.DefaultSourceLanguage,
		"default_target": s.cfg.DefaultTargetLanguage,
	})
}

type sessionView struct {
	State       string      `json:"state"`
	SampleCount int         `json:"sample_count"`
	HasModel    bool        `json:"has_model"`
	LastError   string      `json:"last_error,omitempty"`
	Result      *resultView `json:"result,omitempty"`
}

type resultView struct {
	TranslatedText string  `json:"translated_text"`
	OutputURL      string  `json:"output_url"`
	SampleRate     int     `json:"sample_rate"`
	Duration       float64 `json:"duration"`
	SourceLang     string  `json:"source_lang"`
	TargetLang     string  `json:"target_lang"`
}

func viewOf(snap session.Snapshot) sessionView {
	v := sessionView{
		State:       snap.State.String(),
		SampleCount: snap.SampleCount,
		HasModel:    snap.HasModel,
		LastError:   snap.LastError,
	}
	if snap.Result != nil {
		v.Result = &resultView{
			TranslatedText: snap.Result.TranslatedText,
			OutputURL:      "/outputs/" + snap.Result.OutputID + ".wav",
			SampleRate:     snap.Result.SampleRate,
			Duration:       snap.Result.Duration,
			SourceLang:     snap.Result.SourceLang,
			TargetLang:     snap.Result.TargetLang,
		}
	}
	return v
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sess(w, r)
	writeJSON(w, http.StatusOK, viewOf(sess.Snapshot()))
}

type fileReport struct {
	Name       string  `json:"name"`
	Valid      bool    `json:"valid"`
	Error      string  `json:"error,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
}

func (s *Server) handleUploadSamples(w http.ResponseWriter, r *http.Request) {
	sess := s.sess(w, r)

	maxBytes := int64(s.cfg.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["samples"]
	if len(files) == 0 {
		s.writeError(w, &audio.ValidationError{Reason: "no files in upload (field \"samples\")"})
		return
	}

	validateOpts := audio.ValidateOptions{
		MinDuration: s.cfg.MinAudioDuration,
		MaxDuration: s.cfg.MaxAudioDuration,
	}
	processOpts := audio.ProcessOptions{
		TargetRate: s.cfg.SampleRate,
		TargetDB:   s.cfg.NormalizationDB,
		SilenceDB:  s.cfg.SilenceThresholdDB,
	}

	reports := make([]fileReport, 0, len(files))
	var accepted []*audio.Audio
	for _, fh := range files {
		report := fileReport{Name: fh.Filename}
		f, err := fh.Open()
		if err != nil {
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		a, meta, err := audio.Validate(f, validateOpts)
		f.Close()
		if err != nil {
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		processed, err := audio.Preprocess(a, processOpts)
		if err != nil {
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		report.Valid = true
		report.Duration = meta.Duration
		report.SampleRate = meta.SampleRate
		reports = append(reports, report)
		accepted = append(accepted, processed)

		if s.cfg.SaveIntermediateFiles {
			path := filepath.Join(s.cfg.SamplesDir, fmt.Sprintf("%s_%s.wav", sess.ID, sanitizeName(fh.Filename)))
			if err := processed.SaveWAV(path); err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("failed to save processed sample")
			}
		}
	}

	if len(accepted) > 0 {
		if err := sess.AddSamples(accepted, s.cfg.MaxVoiceSamples); err != nil {
			s.writeError(w, err)
			return
		}
	}

	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"files":    reports,
		"accepted": len(accepted),
		"session":  viewOf(snap),
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	sess := s.sess(w, r)

	samples, err := sess.BeginTraining()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info().Str("session", sess.ID).Int("samples", len(samples)).Msg("Training voice model...")
	model, err := s.cloner.Train(samples)
	if err != nil {
		sess.Fail(err)
		s.writeError(w, err)
		return
	}

	checkpoint := filepath.Join(s.cfg.ModelsDir, "checkpoints", model.ID+".bin")
	if err := cloner.SaveModel(checkpoint, model); err != nil {
		s.log.Warn().Err(err).Str("path", checkpoint).Msg("failed to persist voice model checkpoint")
	}

	sess.CompleteTraining(model)
	s.log.Info().Str("session", sess.ID).Str("model", model.ID).Msg("Voice model trained")
	writeJSON(w, http.StatusOK, viewOf(sess.Snapshot()))
}

// handleRestore installs the most recently persisted voice model into the
// session, so a returning browser can skip re-uploading and retraining.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	sess := s.sess(w, r)

	dir := filepath.Join(s.cfg.ModelsDir, "checkpoints")
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.writeError(w, cloner.ErrNotTrained)
		return
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bin" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		s.writeError(w, cloner.ErrNotTrained)
		return
	}

	model, err := cloner.LoadModel(filepath.Join(dir, newest))
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess.SetModel(model)
	s.log.Info().Str("session", sess.ID).Str("model", model.ID).Msg("Voice model restored from checkpoint")
	writeJSON(w, http.StatusOK, viewOf(sess.Snapshot()))
}

type generateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.sess(w, r)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &audio.ValidationError{Reason: "malformed request body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		s.writeError(w, &audio.ValidationError{Reason: "text is empty"})
		return
	}
	if len([]rune(req.Text)) > s.cfg.MaxTextLength {
		s.writeError(w, &audio.ValidationError{
			Reason: fmt.Sprintf("text too long: %d characters (maximum %d)", len([]rune(req.Text)), s.cfg.MaxTextLength),
		})
		return
	}
	if req.Source == "" {
		req.Source = s.cfg.DefaultSourceLanguage
	}
	if req.Target == "" {
		req.Target = s.cfg.DefaultTargetLanguage
	}
	source, ok := language.Lookup(req.Source)
	if !ok {
		s.writeError(w, unsupportedLanguage(req.Source))
		return
	}
	target, ok := language.Lookup(req.Target)
	if !ok {
		s.writeError(w, unsupportedLanguage(req.Target))
		return
	}

	model, err := sess.BeginGeneration()
	if err != nil {
		s.writeError(w, err)
		return
	}

	translated, err := s.translator.Translate(r.Context(), req.Text, source.Code, target.Code)
	if err != nil {
		sess.Fail(err)
		s.writeError(w, err)
		return
	}

	sess.BeginSynthesis()
	out, err := s.cloner.Synthesize(model, translated, target)
	if err != nil {
		sess.Fail(err)
		s.writeError(w, err)
		return
	}

	outputID := uuid.NewString()
	path := filepath.Join(s.cfg.OutputsDir, outputID+".wav")
	if err := out.SaveWAV(path); err != nil {
		sess.Fail(err)
		s.writeError(w, err)
		return
	}

	result := &session.Result{
		TranslatedText: translated,
		OutputID:       outputID,
		SampleRate:     out.SampleRate,
		Duration:       out.Duration(),
		SourceLang:     source.Code,
		TargetLang:     target.Code,
	}
	sess.CompleteGeneration(result)

	s.log.Info().
		Str("session", sess.ID).
		Str("output", outputID).
		Float64("duration_sec", out.Duration()).
		Msg("Speech generated")
	writeJSON(w, http.StatusOK, viewOf(sess.Snapshot()))
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &audio.ValidationError{Reason: "malformed request body"})
		return
	}
	l := language.Detect(req.Text)
	writeJSON(w, http.StatusOK, languageInfo{Code: l.Code, Name: l.Name, NativeName: l.NativeName})
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(filepath.Base(r.URL.Path), ".wav")
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.OutputsDir, id+".wav")
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, id+".wav", fileModTime(f), f)
}

func fileModTime(f *os.File) time.Time {
	if info, err := f.Stat(); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
