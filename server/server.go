package server

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/pkg/extractor"
	"github.com/xhad/askpdf/pkg/session"
	"github.com/xhad/askpdf/pkg/speech"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type Config struct {
	MaxUploadBytes int64
	SampleRate     int // sample rate the browser records at
}

type Server struct {
	config   Config
	sessions *session.Service
	mux      *http.ServeMux
}

// page is the data rendered by templates/index.html.
type page struct {
	View       session.View
	Error      string
	SampleRate int
	Listening  string
}

func New(config Config, sessions *session.Service) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 20 << 20
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	s := &Server{
		config:   config,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("POST /voice", s.handleVoice)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleIndex renders the uploader, or the loaded document when a session
// is given. The method parameter switches between typed and spoken input.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		s.render(w, http.StatusOK, page{View: session.View{State: session.StateInitial}})
		return
	}

	method := session.InputText
	if r.URL.Query().Get("method") == string(session.InputVoice) {
		method = session.InputVoice
	}
	_, view, err := s.sessions.Get(id, method)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, http.StatusOK, page{View: view})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// multipart framing needs a little room on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.render(w, http.StatusRequestEntityTooLarge, page{
				View:  session.View{State: session.StateInitial},
				Error: "The uploaded file is too large.",
			})
			return
		}
		s.render(w, http.StatusBadRequest, page{
			View:  session.View{State: session.StateInitial},
			Error: "Choose a PDF file to upload.",
		})
		return
	}
	defer file.Close()

	if !isPDF(header.Filename, file) {
		s.render(w, http.StatusBadRequest, page{
			View:  session.View{State: session.StateInitial},
			Error: "Only PDF files are accepted.",
		})
		return
	}

	_, view, err := s.sessions.Load(r.Context(), header.Filename, file)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, http.StatusOK, page{View: view})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view, err := s.sessions.AskText(r.Context(), r.PostForm.Get("session"), r.PostForm.Get("question"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, http.StatusOK, page{View: view})
}

// handleVoice takes a browser recording as the request body and replies
// with the resulting view as JSON.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "recording too large"})
		return
	}

	audio := models.Audio{
		Data:        data,
		ContentType: r.Header.Get("Content-Type"),
		SampleRate:  s.config.SampleRate,
	}
	view, err := s.sessions.AskVoice(r.Context(), r.URL.Query().Get("session"), audio)
	if err != nil {
		status, message := errorStatus(err)
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) render(w http.ResponseWriter, status int, p page) {
	p.SampleRate = s.config.SampleRate
	p.Listening = speech.NoticeListening
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		log.Printf("Error rendering page: %v", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	if status >= 500 {
		log.Printf("Request failed: %v", err)
	}
	s.render(w, status, page{View: session.View{State: session.StateInitial}, Error: message})
}

// errorStatus maps a session error onto the response status and message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, extractor.ErrInvalidPDF):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Your session has expired. Upload the PDF again."
	default:
		return http.StatusBadGateway, err.Error()
	}
}

// isPDF checks the extension and sniffs the leading bytes, leaving the
// file positioned at its start.
func isPDF(name string, file io.ReadSeeker) bool {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return http.DetectContentType(head[:n]) == "application/pdf"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
