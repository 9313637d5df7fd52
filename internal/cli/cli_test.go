package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cabinetquote/internal/rag"
)

type fakeServer struct {
	reply   string
	drafts  []string
	resets  int
	failure bool
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": f.reply})
	})
	mux.HandleFunc("/create_draft", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.drafts = append(f.drafts, req["content"])
		if f.failure {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "Gmail is not connected"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Draft created successfully in your Gmail!", "draft_id": "r-1"})
	})
	mux.HandleFunc("/chat/reset", func(w http.ResponseWriter, r *http.Request) {
		f.resets++
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Conversation history cleared."})
	})
	return mux
}

func TestChatClient_Turn(t *testing.T) {
	tests := []struct {
		name       string
		server     *fakeServer
		wantOutput []string
		wantDraft  string
	}{
		{
			name:       "conversational reply",
			server:     &fakeServer{reply: "What is the client's name?"},
			wantOutput: []string{"What is the client's name?"},
		},
		{
			name:       "draft filed",
			server:     &fakeServer{reply: "[DRAFT_READY]\nHi Jane,\n\nOak cabinets: $4000\n"},
			wantOutput: []string{"creating that draft", "Draft created successfully in your Gmail!"},
			wantDraft:  "Hi Jane,\n\nOak cabinets: $4000",
		},
		{
			name:       "draft rejected",
			server:     &fakeServer{reply: "[DRAFT_READY] Hi", failure: true},
			wantOutput: []string{"Gmail is not connected"},
			wantDraft:  "Hi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.server.handler())
			defer srv.Close()

			var out bytes.Buffer
			NewChatClient(srv.URL+"/", srv.Client()).Turn(context.Background(), &out, "go ahead")
			for _, want := range tt.wantOutput {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output %q missing %q", out.String(), want)
				}
			}
			if tt.wantDraft == "" && len(tt.server.drafts) != 0 {
				t.Errorf("unexpected drafts %q", tt.server.drafts)
			}
			if tt.wantDraft != "" && (len(tt.server.drafts) != 1 || tt.server.drafts[0] != tt.wantDraft) {
				t.Errorf("drafts = %q, want %q", tt.server.drafts, tt.wantDraft)
			}
		})
	}
}

func TestChatClient_Reset(t *testing.T) {
	fs := &fakeServer{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	if err := NewChatClient(srv.URL, srv.Client()).Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if fs.resets != 1 {
		t.Errorf("resets = %d", fs.resets)
	}
}

func TestChatClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewChatClient(srv.URL, srv.Client()).Send(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v", err)
	}
}

func TestPrintMatches(t *testing.T) {
	matches := []rag.Match{
		{Position: 0, Distance: 0.25, Text: "Subject: Kitchen\n\nOak cabinets,\nsoft-close drawers"},
		{Position: 1, Distance: 1.5, Text: "Subject: Media Unit\n\nWalnut"},
	}

	var out bytes.Buffer
	if err := printMatches(&out, matches, false); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "1. [distance 0.2500] #0 Subject: Kitchen") || !strings.Contains(text, "Oak cabinets, soft-close drawers") {
		t.Errorf("output = %q", text)
	}
	if strings.Index(text, "Kitchen") > strings.Index(text, "Media Unit") {
		t.Error("matches printed out of order")
	}

	out.Reset()
	if err := printMatches(&out, matches, true); err != nil {
		t.Fatal(err)
	}
	var decoded []rag.Match
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("json output = %q, %v", out.String(), err)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("Subject: A\n\n"+strings.Repeat("x", 200), 10); got != "xxxxxxxxxx..." {
		t.Errorf("preview = %q", got)
	}
	if got := preview("no subject line", 50); got != "no subject line" {
		t.Errorf("preview = %q", got)
	}
}
