package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/internal/types"
	"github.com/xhad/askpdf/pkg/qa"
	"github.com/xhad/askpdf/pkg/speech"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

const (
	NoticeLoaded = "PDF successfully loaded and text extracted!"
	AskedPrefix  = "You asked: "
)

type State string

const (
	StateInitial       State = "initial"
	StateFileLoaded    State = "file_loaded"
	StateQuestionReady State = "question_ready"
)

type InputMethod string

const (
	InputText  InputMethod = "text"
	InputVoice InputMethod = "voice"
)

// View is everything a surface needs to render one step of a session.
type View struct {
	SessionID    string      `json:"session"`
	State        State       `json:"state"`
	DocumentName string      `json:"document,omitempty"`
	Notice       string      `json:"notice,omitempty"`
	Preview      string      `json:"preview,omitempty"`
	InputMethod  InputMethod `json:"input_method,omitempty"`
	Question     string      `json:"question,omitempty"`
	Asked        string      `json:"asked,omitempty"`
	SpeechNotice string      `json:"speech_notice,omitempty"`
	Answer       string      `json:"answer,omitempty"`
	Score        float64     `json:"score,omitempty"`
	Confidence   string      `json:"confidence,omitempty"`
}

// Session owns one extracted document. Questions against the same session
// are answered one at a time.
type Session struct {
	ID       string
	Document *models.Document
	Created  time.Time

	mu sync.Mutex
}

type ServiceConfig struct {
	PreviewChars int
	TTL          time.Duration
}

type Service struct {
	config      ServiceConfig
	extractor   types.Extractor
	engine      *qa.Engine
	transcriber types.Transcriber
	sessions    *store
}

func NewService(config ServiceConfig, extractor types.Extractor, engine *qa.Engine, transcriber types.Transcriber) *Service {
	if config.PreviewChars <= 0 {
		config.PreviewChars = 500
	}
	if config.TTL == 0 {
		config.TTL = 30 * time.Minute
	}

	s := &Service{
		config:      config,
		extractor:   extractor,
		engine:      engine,
		transcriber: transcriber,
	}
	s.sessions = newStore(config.TTL, s.forget)
	return s
}

// Load extracts the PDF in r and opens a session around it. Extraction
// errors are returned unchanged.
func (s *Service) Load(ctx context.Context, name string, r io.Reader) (*Session, View, error) {
	doc, err := s.extractor.ExtractDocument(name, r)
	if err != nil {
		return nil, View{}, err
	}
	if err := s.engine.Index(ctx, doc); err != nil {
		// No session owns the document yet, so nothing else would drop its rows.
		if ferr := s.engine.Forget(context.Background(), doc.ID); ferr != nil {
			log.Printf("Failed to drop chunks of %q after indexing error: %v", doc.Name, ferr)
		}
		return nil, View{}, err
	}

	sess := &Session{
		ID:       uuid.New().String(),
		Document: doc,
		Created:  time.Now(),
	}
	s.sessions.Set(sess)
	log.Printf("Session %s loaded %q (%d pages, %d bytes)", sess.ID, doc.Name, doc.Pages, len(doc.Text))

	return sess, s.loadedView(sess, InputText), nil
}

// Get returns the session and its FileLoaded view for the given input method.
func (s *Service) Get(id string, method InputMethod) (*Session, View, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, View{}, ErrNotFound
	}
	return sess, s.loadedView(sess, method), nil
}

// AskText answers a typed question. A blank question leaves the session in
// FileLoaded and never reaches the answer engine.
func (s *Service) AskText(ctx context.Context, id, question string) (View, error) {
	sess, view, err := s.Get(id, InputText)
	if err != nil {
		return View{}, err
	}
	return s.answer(ctx, sess, view, strings.TrimSpace(question))
}

// AskVoice recognizes uploaded audio and answers the transcript.
func (s *Service) AskVoice(ctx context.Context, id string, audio models.Audio) (View, error) {
	sess, view, err := s.Get(id, InputVoice)
	if err != nil {
		return View{}, err
	}
	return s.answerSpoken(ctx, sess, view, speech.Recognize(ctx, s.transcriber, audio))
}

// Listen records one utterance from recorder and proceeds as AskVoice.
func (s *Service) Listen(ctx context.Context, id string, recorder types.Recorder) (View, error) {
	sess, view, err := s.Get(id, InputVoice)
	if err != nil {
		return View{}, err
	}
	result, err := speech.Capture(ctx, recorder, s.transcriber)
	if err != nil {
		return View{}, err
	}
	return s.answerSpoken(ctx, sess, view, result)
}

// Close ends a session and releases anything indexed for it.
func (s *Service) Close(id string) {
	s.sessions.Delete(id)
}

// Shutdown ends every session.
func (s *Service) Shutdown() {
	s.sessions.Clear()
}

// Sweep removes expired sessions every interval until ctx is done.
func (s *Service) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				log.Printf("Expired %d sessions", n)
			}
		}
	}
}

func (s *Service) answerSpoken(ctx context.Context, sess *Session, view View, result speech.Result) (View, error) {
	if result.Status != speech.StatusRecognized {
		log.Printf("Session %s: speech %s: %v", sess.ID, result.Status, result.Err)
		view.SpeechNotice = result.Notice()
		return view, nil
	}
	view.Asked = AskedPrefix + result.Question()
	return s.answer(ctx, sess, view, result.Question())
}

func (s *Service) answer(ctx context.Context, sess *Session, view View, question string) (View, error) {
	if question == "" {
		return view, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	answer, err := s.engine.AnswerDocument(ctx, question, sess.Document)
	if err != nil {
		return View{}, fmt.Errorf("failed to answer question: %w", err)
	}

	view.State = StateQuestionReady
	view.Question = question
	view.Answer = answer.Text
	view.Score = qa.Round2(answer.Score)
	view.Confidence = qa.FormatConfidence(answer.Score)
	return view, nil
}

func (s *Service) loadedView(sess *Session, method InputMethod) View {
	return View{
		SessionID:    sess.ID,
		State:        StateFileLoaded,
		DocumentName: sess.Document.Name,
		Notice:       NoticeLoaded,
		Preview:      Preview(sess.Document.Text, s.config.PreviewChars),
		InputMethod:  method,
	}
}

func (s *Service) forget(sess *Session) {
	if err := s.engine.Forget(context.Background(), sess.Document.ID); err != nil {
		log.Printf("Session %s: failed to drop indexed chunks: %v", sess.ID, err)
	}
}

// Preview returns the first n characters of text followed by "...".
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
