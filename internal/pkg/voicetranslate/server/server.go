// Package server hosts the browser form UI and the JSON API behind it. The
// flow mirrors the form: upload samples, train, then translate + synthesize
// in one generate submission.
package server

import (
	"embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/config"
	"voicetranslate/internal/pkg/voicetranslate/session"
	"voicetranslate/internal/pkg/voicetranslate/translator"
)

//go:embed static
var staticFS embed.FS

const sessionCookie = "vt_session"

type Server struct {
	cfg        *config.Config
	cloner     cloner.Cloner
	translator translator.Translator
	store      *session.Store
	log        zerolog.Logger
}

func New(cfg *config.Config, cl cloner.Cloner, tr translator.Translator, store *session.Store, logger zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		cloner:     cl,
		translator: tr,
		store:      store,
		log:        logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/languages", s.handleLanguages)
	r.Get("/api/session", s.handleSession)
	r.Get("/outputs/{id}.wav", s.handleOutput)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Post("/api/samples", s.handleUploadSamples)
		r.Post("/api/train", s.handleTrain)
		r.Post("/api/restore", s.handleRestore)
		r.Post("/api/generate", s.handleGenerate)
		r.Post("/api/detect", s.handleDetect)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// sess resolves the browser session from the cookie, creating one (and
// setting the cookie) on first contact.
func (s *Server) sess(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess := s.store.GetOrCreate(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}
