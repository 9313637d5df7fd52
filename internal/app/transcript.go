package app

import (
	"context"

	"cabinetquote/internal/model"
)

type MessageStore interface {
	Create(message *model.Message) error
}

// DirectTranscript writes turns straight to the database when no queue is
// configured.
type DirectTranscript struct {
	store MessageStore
}

func NewDirectTranscript(store MessageStore) *DirectTranscript {
	return &DirectTranscript{store: store}
}

func (d *DirectTranscript) Publish(_ context.Context, msg model.Message) error {
	return d.store.Create(&msg)
}
