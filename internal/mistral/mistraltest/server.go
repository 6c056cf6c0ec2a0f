// Package mistraltest provides an in-process fake of the Mistral API endpoints used by
// this module, for tests.
package mistraltest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"mistraltools/internal/mistral"
)

// APIKey is the key the fake server accepts.
const APIKey = "test-key"

// Upload records one multipart upload received by the server.
type Upload struct {
	Name    string
	Purpose string
	Data    []byte
}

// Server fakes /files, /files/{id}/url, /ocr and /chat/completions.
type Server struct {
	*httptest.Server

	// OCRResponse is returned verbatim by POST /v1/ocr.
	OCRResponse []byte

	// ChatContent is the assistant message returned by POST /v1/chat/completions.
	ChatContent string

	// FailStatus forces every endpoint to answer with this status when non-zero.
	FailStatus int

	mu          sync.Mutex
	uploads     []Upload
	ocrRequests []mistral.OCRRequest
	chatPrompts []string
	calls       int
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/files", s.handleUpload)
	mux.HandleFunc("GET /v1/files/{id}/url", s.handleSignedURL)
	mux.HandleFunc("POST /v1/ocr", s.handleOCR)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChat)

	s.Server = httptest.NewServer(s.guard(mux))
	t.Cleanup(s.Close)
	return s
}

// Config returns a client configuration pointed at the fake server.
func (s *Server) Config() mistral.Config {
	return mistral.Config{
		APIKey:     APIKey,
		BaseURL:    s.URL + "/v1",
		HTTPClient: s.Client(),
	}
}

// Uploads returns the uploads received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// OCRRequests returns the OCR requests received so far.
func (s *Server) OCRRequests() []mistral.OCRRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mistral.OCRRequest(nil), s.ocrRequests...)
}

// ChatPrompts returns the user prompts received so far.
func (s *Server) ChatPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chatPrompts...)
}

// Calls returns the number of requests that reached the server.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		if s.FailStatus != 0 {
			writeJSON(w, s.FailStatus, map[string]string{"message": http.StatusText(s.FailStatus)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{Name: header.Filename, Purpose: r.FormValue("purpose"), Data: data})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       "file-123",
		"object":   "file",
		"bytes":    len(data),
		"filename": header.Filename,
		"purpose":  r.FormValue("purpose"),
	})
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("expiry") == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "missing expiry"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.URL + "/signed/" + r.PathValue("id")})
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req mistral.OCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	s.ocrRequests = append(s.ocrRequests, req)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.OCRResponse)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	for _, msg := range req.Messages {
		if msg.Role == openai.ChatMessageRoleUser {
			s.chatPrompts = append(s.chatPrompts, msg.Content)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chat-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   req.Model,
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    openai.ChatMessageRoleAssistant,
					"content": s.ChatContent,
				},
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
