// Package gatewaytest runs an in-memory backend implementing the chat REST
// contract, so gateway and service tests can exercise real HTTP round trips.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

type account struct {
	id       int
	email    string
	password string
}

type conversation struct {
	id        int
	title     string
	createdAt time.Time
}

type entry struct {
	role      string
	content   string
	createdAt time.Time
}

// Server is a fake chat backend with canned AI replies.
type Server struct {
	mu            sync.Mutex
	healthy       bool
	nextID        int
	accounts      map[string]account
	conversations []conversation
	histories     map[int][]entry
	chatCalls     int

	// Reply produces the assistant answer for a user message.
	Reply func(message string) string

	srv *httptest.Server
}

// NewServer starts the stub backend. Callers own Close.
func NewServer() *Server {
	s := &Server{
		healthy:   true,
		nextID:    1,
		accounts:  make(map[string]account),
		histories: make(map[int][]entry),
		Reply: func(message string) string {
			return "You said: " + message
		},
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Get("/conversations", s.handleListConversations)
	r.Post("/conversations", s.handleCreateConversation)
	r.Delete("/conversations/{conversationID}", s.handleDeleteConversation)
	r.Post("/chat", s.handleChat)
	r.Get("/history/{conversationID}", s.handleHistory)
	r.Get("/weather", s.handleWeather)

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the base URL clients should use.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the stub down.
func (s *Server) Close() { s.srv.Close() }

// SetHealthy controls the /health probe result.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// ChatCalls reports how many /chat requests arrived.
func (s *Server) ChatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCalls
}

// AddUser seeds an account so login can succeed without registering.
func (s *Server) AddUser(username, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{id: s.allocID(), email: email, password: password}
}

// SeedConversation installs a conversation with history and returns its id.
func (s *Server) SeedConversation(title string, turns ...[2]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	s.conversations = append(s.conversations, conversation{id: id, title: title, createdAt: time.Now().UTC()})
	for _, turn := range turns {
		s.histories[id] = append(s.histories[id], entry{role: turn[0], content: turn[1], createdAt: time.Now().UTC()})
	}
	return strconv.Itoa(id)
}

// allocID must be called with the lock held.
func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()

	if !healthy {
		respondError(w, http.StatusServiceUnavailable, "backend is down")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(payload.Username) == "" {
		fieldErrors["username"] = "Username is required"
	}
	if strings.TrimSpace(payload.Email) == "" {
		fieldErrors["email"] = "Email is required"
	}
	if len(payload.Password) < 6 {
		fieldErrors["password"] = "Password must be at least 6 characters"
	}
	if len(fieldErrors) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrors})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[payload.Username]; exists {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "Username already exists",
		})
		return
	}
	acct := account{id: s.allocID(), email: payload.Email, password: payload.Password}
	s.accounts[payload.Username] = acct

	respondJSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"message":  "User registered successfully",
		"userId":   acct.id,
		"username": payload.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[payload.Username]
	s.mu.Unlock()

	if !ok || acct.password != payload.Password {
		respondJSON(w, http.StatusUnauthorized, map[string]any{
			"status":  "error",
			"message": "Invalid username or password",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"message":  "Login successful",
		"userId":   acct.id,
		"username": payload.Username,
		"email":    acct.email,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conversationJSON(conv))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		payload.Title = "New Conversation"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv := conversation{id: s.allocID(), title: payload.Title, createdAt: time.Now().UTC()}
	s.conversations = append(s.conversations, conv)
	s.histories[conv.id] = nil

	respondJSON(w, http.StatusCreated, conversationJSON(conv))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, conv := range s.conversations {
		if conv.id == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			delete(s.histories, id)
			respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
			return
		}
	}
	respondJSON(w, http.StatusNotFound, map[string]string{"message": "Conversation not found"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message        string       `json:"message"`
		ConversationID *json.Number `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCalls++

	if strings.TrimSpace(payload.Message) == "" {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "error",
			"error":  "Message cannot be empty",
		})
		return
	}

	var conv *conversation
	if payload.ConversationID != nil {
		id, err := strconv.Atoi(payload.ConversationID.String())
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid conversation id")
			return
		}
		for i := range s.conversations {
			if s.conversations[i].id == id {
				conv = &s.conversations[i]
				break
			}
		}
		if conv == nil {
			respondJSON(w, http.StatusNotFound, map[string]string{"message": "Conversation not found"})
			return
		}
	} else {
		title := payload.Message
		if len(title) > 30 {
			title = title[:30] + "..."
		}
		s.conversations = append(s.conversations, conversation{id: s.allocID(), title: title, createdAt: time.Now().UTC()})
		conv = &s.conversations[len(s.conversations)-1]
	}

	reply := s.Reply(payload.Message)
	now := time.Now().UTC()
	s.histories[conv.id] = append(s.histories[conv.id],
		entry{role: "user", content: payload.Message, createdAt: now},
		entry{role: "assistant", content: reply, createdAt: now.Add(time.Millisecond)},
	)

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"response":       reply,
		"conversationId": conv.id,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[id]
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Conversation not found"})
		return
	}

	out := make([]map[string]any, 0, len(history))
	for _, item := range history {
		out = append(out, map[string]any{
			"role":      item.role,
			"content":   item.content,
			"createdAt": item.createdAt.Format(time.RFC3339Nano),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, "city query parameter is required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"city":        city,
		"temperature": 21.5,
		"description": "partly cloudy",
	})
}

func conversationJSON(conv conversation) map[string]any {
	return map[string]any{
		"id":        conv.id,
		"title":     conv.title,
		"createdAt": conv.createdAt.Format(time.RFC3339Nano),
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Printf("gatewaytest: failed to encode response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
