// Package chat owns the single running conversation with the hosted model.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"cabinetquote/internal/ai"
)

const emptyReplyPlaceholder = "The model returned an empty response."

// Completer is the subset of ai.OpenAICompatibleClient a session needs.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// HistoryStore keeps the turns of a conversation between requests.
// Load returns an empty slice for an unknown key.
type HistoryStore interface {
	Load(ctx context.Context, key string) ([]ai.ChatMessage, error)
	Save(ctx context.Context, key string, messages []ai.ChatMessage) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Key          string
	SystemPrompt string
	// MaxContext caps how many stored turns are sent with each request; 0 sends all.
	MaxContext int
	Store      HistoryStore
}

// Session serialises every send-and-append so concurrent requests cannot
// interleave their turns in the history.
type Session struct {
	mu           sync.Mutex
	llm          Completer
	cfg          ai.ChatConfig
	key          string
	systemPrompt string
	maxContext   int
	store        HistoryStore
}

func NewSession(llm Completer, cfg ai.ChatConfig, opts Options) *Session {
	if opts.Key == "" {
		opts.Key = "default"
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.MaxContext < 0 {
		opts.MaxContext = 0
	}
	return &Session{
		llm:          llm,
		cfg:          cfg,
		key:          opts.Key,
		systemPrompt: opts.SystemPrompt,
		maxContext:   opts.MaxContext,
		store:        opts.Store,
	}
}

func (s *Session) Key() string { return s.key }

// Send forwards prompt as the next user turn and returns the model's reply.
// The history only grows when the model answers.
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	return s.exchange(ctx, prompt, func(messages []ai.ChatMessage) (string, error) {
		return s.llm.Complete(ctx, s.cfg, messages)
	})
}

// Stream is Send with the reply delivered in chunks as it is generated.
func (s *Session) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	return s.exchange(ctx, prompt, func(messages []ai.ChatMessage) (string, error) {
		return s.llm.StreamComplete(ctx, s.cfg, messages, onChunk)
	})
}

func (s *Session) exchange(ctx context.Context, prompt string, call func([]ai.ChatMessage) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.store.Load(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("load chat history failed: %w", err)
	}

	reply, err := call(s.buildMessages(history, prompt))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		reply = emptyReplyPlaceholder
	}

	history = append(history,
		ai.ChatMessage{Role: ai.RoleUser, Content: prompt},
		ai.ChatMessage{Role: ai.RoleAssistant, Content: reply},
	)
	if err := s.store.Save(ctx, s.key, history); err != nil {
		log.Printf("save chat history failed: %v", err)
	}
	return reply, nil
}

// Reset forgets the conversation.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("reset chat history failed: %w", err)
	}
	return nil
}

func (s *Session) History(ctx context.Context) ([]ai.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx, s.key)
}

func (s *Session) buildMessages(history []ai.ChatMessage, prompt string) []ai.ChatMessage {
	recent := history
	if s.maxContext > 0 && len(recent) > s.maxContext {
		recent = recent[len(recent)-s.maxContext:]
	}
	messages := make([]ai.ChatMessage, 0, len(recent)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: s.systemPrompt})
	messages = append(messages, recent...)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: prompt})
	return messages
}
