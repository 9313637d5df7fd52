package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cabinetquote/internal/rag"
	"cabinetquote/internal/transport/http/response"
)

var chatServer string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running quote server from the terminal",
	Long: `Send each line to the server's /chat endpoint. When the assistant signals a
finished draft, the body is filed in Gmail through /create_draft.

Type /reset to start over, /quit to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatServer, "server", "", "server base URL (default from app.host and app.port)")
}

func runChat(cmd *cobra.Command, args []string) error {
	server := chatServer
	if server == "" {
		server = "http://" + cfg.HTTPAddr()
	}
	client := NewChatClient(server, nil)

	fmt.Printf("Connected to %s. Describe the job to start a quote.\n", server)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := client.Reset(cmd.Context()); err != nil {
				fmt.Println("Reset failed:", err)
				continue
			}
			fmt.Println("Conversation cleared.")
			continue
		}
		client.Turn(cmd.Context(), os.Stdout, line)
	}
}

// ChatClient talks to the server's JSON endpoints.
type ChatClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewChatClient(baseURL string, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &ChatClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Turn sends one message and prints the reply. A finished draft is filed in
// Gmail instead of being printed.
func (c *ChatClient) Turn(ctx context.Context, w io.Writer, message string) {
	reply, err := c.Send(ctx, message)
	if err != nil {
		fmt.Fprintln(w, "Sorry, something went wrong. Please check the server:", err)
		return
	}
	body, ok := rag.SplitDraft(reply)
	if !ok {
		fmt.Fprintln(w, reply)
		return
	}

	fmt.Fprintln(w, "OK, creating that draft in Gmail for you now...")
	status, err := c.CreateDraft(ctx, body)
	if err != nil {
		fmt.Fprintln(w, "Sorry, something went wrong. Please check the server:", err)
		return
	}
	fmt.Fprintln(w, status.Message)
}

func (c *ChatClient) Send(ctx context.Context, message string) (string, error) {
	var resp response.ChatResponse
	if err := c.post(ctx, "/chat", map[string]string{"message": message}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *ChatClient) CreateDraft(ctx context.Context, content string) (*response.StatusResponse, error) {
	var resp response.StatusResponse
	if err := c.post(ctx, "/create_draft", map[string]string{"content": content}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ChatClient) Reset(ctx context.Context) error {
	var resp response.StatusResponse
	if err := c.post(ctx, "/chat/reset", nil, &resp); err != nil {
		return err
	}
	if resp.Status != response.StatusSuccess {
		return fmt.Errorf("server: %s", resp.Message)
	}
	return nil
}

// post decodes the JSON body whatever the status code: the server renders
// its errors into the same shapes.
func (c *ChatClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
