package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Who is the client?"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient()
	cfg := ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "k", Model: "gemini-1.5-flash"}
	reply, err := client.Complete(context.Background(), cfg, []ChatMessage{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Who is the client?" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gemini-1.5-flash" || gotBody.Stream || len(gotBody.Messages) != 2 {
		t.Errorf("request body = %+v", gotBody)
	}
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"quota"}`)
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient().Complete(context.Background(), ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status 429", err)
	}
}

func TestStreamComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" Jane\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var chunks []string
	full, err := NewOpenAICompatibleClient().StreamComplete(context.Background(),
		ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, nil,
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamComplete: %v", err)
	}
	if full != "Hello Jane" {
		t.Errorf("full = %q", full)
	}
	if !reflect.DeepEqual(chunks, []string{"Hello", " Jane"}) {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[2,2]},{"index":0,"embedding":[1,1]}]}`)
	}))
	defer srv.Close()

	got, err := NewOpenAICompatibleClient().EmbedBatch(context.Background(),
		EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	want := [][]float32{{1, 1}, {2, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmbedBatch_RejectsEmptyInput(t *testing.T) {
	_, err := NewOpenAICompatibleClient().EmbedBatch(context.Background(), EmbeddingConfig{}, []string{"a", "  "})
	if err == nil {
		t.Fatal("EmbedBatch should reject blank input instead of dropping it")
	}
}

func TestAPIEmbedder_Batches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Input) > 2 {
			t.Errorf("batch of %d exceeds 2", len(body.Input))
		}
		var data []string
		for i, in := range body.Input {
			data = append(data, fmt.Sprintf(`{"index":%d,"embedding":[%d]}`, i, len(in)))
		}
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(data, ","))
	}))
	defer srv.Close()

	emb := NewAPIEmbedder(nil, EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, 2)
	got, err := emb.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	for i, v := range got {
		if int(v[0]) != i+1 {
			t.Errorf("vector %d = %v, want [%d]", i, v, i+1)
		}
	}
}

func TestHashingEmbedder(t *testing.T) {
	emb := NewHashingEmbedder(64)
	a, err := emb.Embed(context.Background(), []string{"Oak cabinets, soft-close drawers", "walnut veneer"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := emb.Embed(context.Background(), []string{"Oak cabinets, soft-close drawers"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !reflect.DeepEqual(a[0], b[0]) {
		t.Error("embedding is not deterministic across calls")
	}
	if len(a[0]) != 64 || len(a[1]) != 64 {
		t.Errorf("dimensions = %d, %d", len(a[0]), len(a[1]))
	}
	var norm float64
	for _, v := range a[0] {
		norm += float64(v) * float64(v)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
	if _, err := emb.Embed(context.Background(), []string{"!!!"}); err == nil {
		t.Error("Embed should fail on input without tokens")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Oak cabinets, soft-close drawers, $4000, 30% deposit")
	want := []string{"oak", "cabinets", "soft", "close", "drawers", "4000", "30", "deposit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %q, want %q", got, want)
	}
}
