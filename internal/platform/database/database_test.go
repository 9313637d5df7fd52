package database

import (
	"context"
	"path/filepath"
	"testing"

	"cabinetquote/internal/model"
	"cabinetquote/internal/repository"
)

func TestOpenSQLite_MigratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quotes.db")
	db, err := Open(context.Background(), DriverSQLite, "", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	messages := repository.NewMessageRepository(db)
	for _, m := range []model.Message{
		{SessionKey: "default", Role: "user", Content: "kitchen for Jane"},
		{SessionKey: "default", Role: "assistant", Content: "What is the budget?"},
		{SessionKey: "other", Role: "user", Content: "media unit"},
		{SessionKey: "default", Role: "user", Content: "$4000"},
	} {
		m := m
		if err := messages.Create(&m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := messages.ListBySessionKey("default", 2)
	if err != nil {
		t.Fatalf("ListBySessionKey: %v", err)
	}
	if len(got) != 2 || got[0].Content != "What is the budget?" || got[1].Content != "$4000" {
		t.Errorf("recent messages = %+v", got)
	}

	drafts := repository.NewDraftRepository(db)
	for _, id := range []string{"r-1", "r-2"} {
		if err := drafts.Create(&model.Draft{GmailDraftID: id, To: "client@example.com", Subject: "Quote", Body: "Hi"}); err != nil {
			t.Fatalf("Create draft: %v", err)
		}
	}
	list, err := drafts.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(list) != 2 || list[0].GmailDraftID != "r-2" {
		t.Errorf("drafts = %+v", list)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "postgres", "", ""); err == nil {
		t.Error("unknown driver should fail")
	}
}
