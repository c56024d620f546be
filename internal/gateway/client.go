// Package gateway is the typed I/O boundary to the chat backend. It holds no
// state beyond connection settings; every method is a single REST round trip.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/pkg/timeutil"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client rooted at baseURL (no trailing slash).
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "gateway").Logger(),
	}
}

// ChatResult is the backend's answer to a message send.
type ChatResult struct {
	Status         string
	Response       string
	ConversationID string
	Error          string
}

// Health probes the backend. Any 2xx counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, "health check failed", false)
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, email, password string) (chat.User, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var resp userEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/register", payload, &resp,
		"Registration failed. Please check your input and try again.", true)
	if err != nil {
		return chat.User{}, err
	}
	return resp.user(), nil
}

// Login exchanges credentials for the authenticated identity.
func (c *Client) Login(ctx context.Context, username, password string) (chat.User, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp userEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/login", payload, &resp,
		"Login failed. Please check your credentials.", true)
	if err != nil {
		return chat.User{}, err
	}
	return resp.user(), nil
}

// ListConversations returns the user's conversations in server order.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var resp []conversationEnvelope
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &resp, "failed to load conversations", false); err != nil {
		return nil, err
	}
	conversations := make([]chat.Conversation, 0, len(resp))
	for _, item := range resp {
		conversations = append(conversations, item.conversation())
	}
	return conversations, nil
}

// CreateConversation asks the backend for a fresh conversation.
func (c *Client) CreateConversation(ctx context.Context, title string) (chat.Conversation, error) {
	payload := map[string]string{"title": title}
	var resp conversationEnvelope
	if err := c.do(ctx, http.MethodPost, "/conversations", payload, &resp, "failed to create conversation", false); err != nil {
		return chat.Conversation{}, err
	}
	return resp.conversation(), nil
}

// DeleteConversation removes a conversation server-side.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil, nil, "failed to delete conversation", false)
}

// SendMessage submits a user message. An empty conversationID is sent as null
// and lets the backend open a new conversation.
func (c *Client) SendMessage(ctx context.Context, message, conversationID string) (ChatResult, error) {
	payload := map[string]any{"message": message}
	if conversationID == "" {
		payload["conversationId"] = nil
	} else {
		payload["conversationId"] = conversationID
	}

	var resp struct {
		Status         string   `json:"status"`
		Response       string   `json:"response"`
		ConversationID opaqueID `json:"conversationId"`
		Error          string   `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat", payload, &resp, "Server error occurred", false); err != nil {
		return ChatResult{}, err
	}
	return ChatResult{
		Status:         resp.Status,
		Response:       resp.Response,
		ConversationID: string(resp.ConversationID),
		Error:          resp.Error,
	}, nil
}

// History fetches the confirmed timeline for a conversation.
func (c *Client) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var resp []historyItem
	path := "/history/" + url.PathEscape(conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "failed to load conversation history", false); err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(resp))
	for _, item := range resp {
		messages = append(messages, chat.Message{
			ID:        uuid.NewString(),
			Role:      chat.Role(item.Role),
			Content:   item.Content,
			Timestamp: timeutil.Parse(item.CreatedAt),
		})
	}
	return messages, nil
}

// Weather calls the demo external-API endpoint.
func (c *Client) Weather(ctx context.Context, city string) (map[string]any, error) {
	var resp map[string]any
	path := "/weather?city=" + url.QueryEscape(city)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "failed to fetch weather", false); err != nil {
		return nil, err
	}
	return resp, nil
}

// do performs one request and classifies failures into the error taxonomy.
// auth marks endpoints whose 400/401 responses mean bad credentials.
func (c *Client) do(ctx context.Context, method, path string, payload, out any, fallback string, auth bool) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := extractMessage(raw, fallback)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return &NotFoundError{Message: message}
		case auth && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized):
			return &AuthError{Message: message}
		default:
			return &ServerError{Status: resp.StatusCode, Message: message}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// opaqueID tolerates the backend emitting identifiers as strings or numbers.
type opaqueID string

func (id *opaqueID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = opaqueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = opaqueID(n.String())
	return nil
}

type userEnvelope struct {
	UserID   opaqueID `json:"userId"`
	ID       opaqueID `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
}

func (e userEnvelope) user() chat.User {
	id := string(e.UserID)
	if id == "" {
		id = string(e.ID)
	}
	return chat.User{ID: id, Username: e.Username, Email: e.Email}
}

type conversationEnvelope struct {
	ID        opaqueID `json:"id"`
	Title     string   `json:"title"`
	CreatedAt string   `json:"createdAt"`
}

func (e conversationEnvelope) conversation() chat.Conversation {
	return chat.Conversation{
		ID:        string(e.ID),
		Title:     e.Title,
		CreatedAt: timeutil.Parse(e.CreatedAt),
	}
}

type historyItem struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}
