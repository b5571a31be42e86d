package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is the websocket envelope in both directions. Clients send
// "question" (Content is the typed text) or "audio" (Content is a base64
// WAV recording); the server replies with "status", "notice", "question",
// "answer" and "error" messages.
type Message struct {
	Type    string      `json:"type"`
	Session string      `json:"session,omitempty"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	conn := &wsConn{Conn: c}
	defer conn.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(r, conn, msg)
		}()
	}
}

func (s *Server) handleMessage(r *http.Request, conn *wsConn, msg Message) {
	ctx := r.Context()

	var (
		view session.View
		err  error
	)
	switch msg.Type {
	case "question":
		s.sendMessage(conn, "status", msg.Session, "Answering...", nil)
		view, err = s.sessions.AskText(ctx, msg.Session, msg.Content)
	case "audio":
		data, decodeErr := base64.StdEncoding.DecodeString(msg.Content)
		if decodeErr != nil {
			s.sendMessage(conn, "error", msg.Session, fmt.Sprintf("Invalid audio payload: %v", decodeErr), nil)
			return
		}
		s.sendMessage(conn, "status", msg.Session, "Recognizing speech...", nil)
		view, err = s.sessions.AskVoice(ctx, msg.Session, models.Audio{
			Data:        data,
			ContentType: "audio/wav",
			SampleRate:  s.config.SampleRate,
		})
	default:
		s.sendMessage(conn, "error", msg.Session, fmt.Sprintf("Unknown message type %q", msg.Type), nil)
		return
	}

	if err != nil {
		_, message := errorStatus(err)
		s.sendMessage(conn, "error", msg.Session, message, nil)
		return
	}

	if view.SpeechNotice != "" {
		s.sendMessage(conn, "notice", msg.Session, view.SpeechNotice, view)
		return
	}
	if view.State != session.StateQuestionReady {
		s.sendMessage(conn, "status", msg.Session, "Ask a question about the PDF.", view)
		return
	}
	if view.Asked != "" {
		s.sendMessage(conn, "question", msg.Session, view.Asked, nil)
	}
	s.sendMessage(conn, "answer", msg.Session, view.Answer, view)
}

func (s *Server) sendMessage(conn *wsConn, msgType, sessionID, content string, data interface{}) {
	msg := Message{
		Type:    msgType,
		Session: sessionID,
		Content: content,
		Data:    data,
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
