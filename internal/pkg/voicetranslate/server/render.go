package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"voicetranslate/internal/pkg/voicetranslate/audio"
	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/session"
	"voicetranslate/internal/pkg/voicetranslate/translator"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func unsupportedLanguage(code string) error {
	return &translator.UnsupportedLanguageError{Code: code}
}

// writeError maps the error taxonomy onto HTTP. Everything except internal
// failures is the caller's problem to fix and leaves the session in a
// recoverable state.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *audio.ValidationError
		codecErr      *audio.CodecError
		stateErr      *session.TransitionError
		langErr       *translator.UnsupportedLanguageError
		missingErr    *cloner.MissingDependencyError
		maxBytesErr   *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.As(err, &validationErr):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.As(err, &codecErr):
		status, code = http.StatusUnsupportedMediaType, "missing_codec"
	case errors.As(err, &langErr):
		status, code = http.StatusBadRequest, "unsupported_language"
	case errors.Is(err, translator.ErrTextTooLong):
		status, code = http.StatusBadRequest, "text_too_long"
	case errors.Is(err, cloner.ErrNoSamples):
		status, code = http.StatusBadRequest, "no_samples"
	case errors.Is(err, cloner.ErrTooManySamples):
		status, code = http.StatusBadRequest, "too_many_samples"
	case errors.Is(err, cloner.ErrNotTrained):
		status, code = http.StatusConflict, "not_trained"
	case errors.As(err, &stateErr):
		status, code = http.StatusConflict, "invalid_state"
	case errors.As(err, &missingErr):
		status, code = http.StatusServiceUnavailable, "missing_dependency"
	case errors.As(err, &maxBytesErr):
		status, code = http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, map[string]apiError{
		"error": {Code: code, Message: err.Error()},
	})
}
