package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cabinetquote/internal/google"
	"cabinetquote/internal/model"
	"cabinetquote/internal/rag"
)

var (
	ErrDraftEmpty         = errors.New("draft content is empty")
	ErrMailUnavailable    = errors.New("mail integration is unavailable")
	ErrRecordsUnavailable = errors.New("records are unavailable without a database")
)

type Drafter interface {
	CreateDraft(ctx context.Context, d google.Draft) (string, error)
}

type DraftStore interface {
	Create(draft *model.Draft) error
	ListRecent(limit int) ([]model.Draft, error)
}

// MailDefaults addresses every quote draft.
type MailDefaults struct {
	From    string
	To      string
	CC      string
	Subject string
}

type DraftService struct {
	drafter  Drafter
	store    DraftStore
	defaults MailDefaults
	reason   string
}

// NewDraftService takes a nil drafter when mail credentials are missing;
// reason then explains why.
func NewDraftService(drafter Drafter, store DraftStore, defaults MailDefaults, reason string) *DraftService {
	return &DraftService{
		drafter:  drafter,
		store:    store,
		defaults: defaults,
		reason:   reason,
	}
}

func (s *DraftService) Available() bool { return s.drafter != nil }

// Status describes mail availability for health reporting.
func (s *DraftService) Status() string {
	if s.drafter != nil {
		return "ready"
	}
	if s.reason != "" {
		return s.reason
	}
	return ErrMailUnavailable.Error()
}

// Create saves content as a Gmail draft. When mail is unavailable it fails
// with ErrMailUnavailable before touching the network.
func (s *DraftService) Create(ctx context.Context, content string) (*model.Draft, error) {
	if s.drafter == nil {
		return nil, ErrMailUnavailable
	}
	body := rag.StripDraftMarker(content)
	if strings.TrimSpace(body) == "" {
		return nil, ErrDraftEmpty
	}

	id, err := s.drafter.CreateDraft(ctx, google.Draft{
		From:    s.defaults.From,
		To:      s.defaults.To,
		CC:      s.defaults.CC,
		Subject: s.defaults.Subject,
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("gmail draft request failed: %w", err)
	}
	log.Printf("draft created, id %s", id)

	draft := &model.Draft{
		GmailDraftID: id,
		To:           s.defaults.To,
		CC:           s.defaults.CC,
		Subject:      s.defaults.Subject,
		Body:         body,
		CreatedAt:    time.Now(),
	}
	if s.store != nil {
		if err := s.store.Create(draft); err != nil {
			log.Printf("record draft %s failed: %v", id, err)
		}
	}
	return draft, nil
}

func (s *DraftService) List(limit int) ([]model.Draft, error) {
	if s.store == nil {
		return nil, ErrRecordsUnavailable
	}
	return s.store.ListRecent(limit)
}
