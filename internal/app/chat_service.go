package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cabinetquote/internal/ai"
	"cabinetquote/internal/model"
	"cabinetquote/internal/rag"
)

var ErrMessageEmpty = errors.New("message content is empty")

type Retriever interface {
	FindRelevant(ctx context.Context, query string, topK int) []string
}

// Conversation is implemented by chat.Session.
type Conversation interface {
	Key() string
	Send(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
	Reset(ctx context.Context) error
}

// TranscriptPublisher records conversation turns somewhere durable.
type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// TranscriptLog reads recorded turns back.
type TranscriptLog interface {
	ListBySessionKey(sessionKey string, limit int) ([]model.Message, error)
}

// ChatService runs one quote-drafting turn: retrieve past quotes, compose the
// augmented prompt, forward it to the conversation.
type ChatService struct {
	retriever Retriever
	session   Conversation
	publisher TranscriptPublisher
	history   TranscriptLog
}

// NewChatService accepts a nil publisher and log when transcripts are not kept.
func NewChatService(retriever Retriever, session Conversation, publisher TranscriptPublisher, history TranscriptLog) *ChatService {
	return &ChatService{
		retriever: retriever,
		session:   session,
		publisher: publisher,
		history:   history,
	}
}

func (s *ChatService) Send(ctx context.Context, message string) (string, error) {
	prompt, content, err := s.prepare(ctx, message)
	if err != nil {
		return "", err
	}
	reply, err := s.session.Send(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat model request failed: %w", err)
	}
	s.record(ctx, content, reply)
	return reply, nil
}

func (s *ChatService) Stream(ctx context.Context, message string, onChunk func(string) error) (string, error) {
	prompt, content, err := s.prepare(ctx, message)
	if err != nil {
		return "", err
	}
	reply, err := s.session.Stream(ctx, prompt, onChunk)
	if err != nil {
		return "", fmt.Errorf("chat model request failed: %w", err)
	}
	s.record(ctx, content, reply)
	return reply, nil
}

func (s *ChatService) Reset(ctx context.Context) error {
	return s.session.Reset(ctx)
}

// Transcript returns the recorded turns of the current conversation, oldest first.
func (s *ChatService) Transcript(limit int) ([]model.Message, error) {
	if s.history == nil {
		return nil, ErrRecordsUnavailable
	}
	return s.history.ListBySessionKey(s.session.Key(), limit)
}

func (s *ChatService) prepare(ctx context.Context, message string) (string, string, error) {
	content := strings.TrimSpace(message)
	if content == "" {
		return "", "", ErrMessageEmpty
	}
	examples := s.retriever.FindRelevant(ctx, content, 0)
	return rag.Compose(examples, content), content, nil
}

// record is best effort: a transcript failure never fails the turn.
func (s *ChatService) record(ctx context.Context, userContent, reply string) {
	if s.publisher == nil {
		return
	}
	now := time.Now()
	for _, msg := range []model.Message{
		{SessionKey: s.session.Key(), Role: ai.RoleUser, Content: userContent, CreatedAt: now},
		{SessionKey: s.session.Key(), Role: ai.RoleAssistant, Content: reply, CreatedAt: now},
	} {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			log.Printf("record transcript failed: %v", err)
			return
		}
	}
}
