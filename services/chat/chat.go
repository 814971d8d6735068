package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AbdulWasayUl/go-weather-chat/internal/api"
	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
)

const contextWindow = 10

const (
	msgGeneric    = "I'm having trouble connecting right now. Please try again!"
	msgNotFound   = "I'm having trouble connecting to my brain right now. Let me try a different approach!"
	msgRateLimit  = "I'm getting a bit overwhelmed with requests. Give me a moment and try again!"
	msgBadRequest = "I didn't understand that. Could you rephrase your question?"
	msgBusy       = "I'm still working on your last message. Give me a moment!"
)

const preamble = `You are a helpful and friendly AI assistant. You can help with various topics including weather, general knowledge, and casual conversation.`

const instructions = `Instructions:
1. Respond naturally and conversationally as if you're a helpful friend
2. Keep responses concise but informative (2-4 sentences)
3. Be enthusiastic and helpful
4. If user asks about weather, you can provide general advice but suggest they use the weather app for specific forecasts
5. If user asks general questions, be conversational and helpful
6. IMPORTANT: Respond with ONLY natural text, no JSON format

Just give a friendly, natural response as if you're talking to a friend.`

var (
	// ErrSendInFlight is returned when Send is called while another send on the same client is pending.
	ErrSendInFlight = errors.New("chat: a message is already being sent")
	// ErrEmptyMessage is returned for blank input; nothing is recorded.
	ErrEmptyMessage = errors.New("chat: message is empty")
)

// Client owns one conversation with the language model.
type Client struct {
	Config *config.Config
	Client *api.Client

	mu      sync.Mutex
	history []ChatMessage
	busy    atomic.Bool

	now   func() time.Time
	newID func() string
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		Config: cfg,
		Client: api.NewClient(timeout),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Send records text as a user message, asks the model for a reply and records
// that too. On failure only the user message stays in the history and the
// returned text is a canned apology chosen by HTTP status.
func (c *Client) Send(ctx context.Context, text string) Reply {
	if strings.TrimSpace(text) == "" {
		return Reply{Err: ErrEmptyMessage}
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Reply{Text: msgBusy, Err: ErrSendInFlight}
	}
	defer c.busy.Store(false)

	c.append(text, true)
	prompt := buildPrompt(c.recent(contextWindow), text)

	answer, err := c.generate(ctx, prompt)
	if err != nil {
		logger.Error("Error generating chat response: %v", err)
		return Reply{Text: fallbackText(err), Err: err}
	}

	c.append(answer, false)
	return Reply{Text: answer}
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}

	data, err := c.Client.PostJSON(ctx, c.Config.GeminiAPIURL, map[string]string{"key": c.Config.GeminiAPIKey}, body)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", api.Malformed("decode model reply", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", api.Malformed("model reply has no candidate text", nil)
	}

	answer := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if answer == "" {
		return "", api.Malformed("model reply is empty", nil)
	}
	return answer, nil
}

func fallbackText(err error) string {
	switch api.StatusCode(err) {
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusTooManyRequests:
		return msgRateLimit
	case http.StatusBadRequest:
		return msgBadRequest
	default:
		return msgGeneric
	}
}

func buildPrompt(recent []ChatMessage, input string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nRecent conversation:\n")
	for i, m := range recent {
		if i > 0 {
			b.WriteByte('\n')
		}
		if m.IsUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
	}
	b.WriteString("\n\nUser: ")
	b.WriteString(input)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

func (c *Client) append(text string, isUser bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, ChatMessage{
		ID:        c.newID(),
		Text:      text,
		IsUser:    isUser,
		Timestamp: c.now(),
	})
}

func (c *Client) recent(n int) []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]ChatMessage, len(c.history)-start)
	copy(out, c.history[start:])
	return out
}

// Clear empties the conversation.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a copy of the conversation, oldest first.
func (c *Client) History() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}
