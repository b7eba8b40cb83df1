package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"churrasco/internal/imageurl"
)

//go:embed templates/*
var templates embed.FS

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

type PageData struct {
	ImageURL string
}

type Handler struct {
	resolver  imageurl.Resolver
	imageName string
	tmpl      *template.Template
	log       zerolog.Logger
}

func New(resolver imageurl.Resolver, imageName string, log zerolog.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Handler{
		resolver:  resolver,
		imageName: imageName,
		tmpl:      tmpl,
		log:       log,
	}, nil
}

// Router wires the page and the static file server under /static/.
func (h *Handler) Router(staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.withRequestLog)

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return r
}

// Index renders the page with a freshly resolved image URL.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	imageURL, err := h.resolver.Resolve(r.Context(), h.imageName)
	if err != nil {
		log.Error().Err(err).
			Str("kind", imageurl.Kind(err)).
			Str("image", h.imageName).
			Msg("resolving image url")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	log.Debug().Str("image", h.imageName).Msg("image url resolved")

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", PageData{ImageURL: imageURL}); err != nil {
		log.Error().Err(err).Msg("rendering index")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags the request with an id and a logger carrying it, and logs
// the outcome once the handler returns.
func (h *Handler) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		reqLog := h.log.With().Str("request_id", id).Logger()
		r = r.WithContext(reqLog.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
