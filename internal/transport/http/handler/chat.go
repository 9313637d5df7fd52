package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cabinetquote/internal/app"
	"cabinetquote/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	Message string `json:"message"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Send answers one turn. Model and retrieval failures come back as
// "Error: ..." text with status 200 so the client can show them inline.
func (h *ChatHandler) Send(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Chat(c, http.StatusBadRequest, "Error: invalid request payload")
		return
	}

	reply, err := h.chatService.Send(c.Request.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Chat(c, http.StatusBadRequest, "Error: "+err.Error())
		default:
			log.Printf("chat turn failed: %v", err)
			response.Chat(c, http.StatusOK, "Error: "+err.Error())
		}
		return
	}

	response.Chat(c, http.StatusOK, reply)
}

func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Chat(c, http.StatusBadRequest, "Error: invalid request payload")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.Chat(c, http.StatusBadRequest, "Error: "+app.ErrMessageEmpty.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Chat(c, http.StatusInternalServerError, "Error: stream not supported")
		return
	}

	full, err := h.chatService.Stream(c.Request.Context(), req.Message, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Printf("chat stream failed: %v", err)
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %s\n\n", sanitizeSSE(err.Error())))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(full) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) Reset(c *gin.Context) {
	if err := h.chatService.Reset(c.Request.Context()); err != nil {
		log.Printf("reset conversation failed: %v", err)
		response.Error(c, http.StatusInternalServerError, "reset conversation failed")
		return
	}
	response.OK(c, "Conversation history cleared.")
}

func (h *ChatHandler) History(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	messages, err := h.chatService.Transcript(limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRecordsUnavailable):
			response.Error(c, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("load transcript failed: %v", err)
			response.Error(c, http.StatusInternalServerError, "load transcript failed")
		}
		return
	}

	response.Data(c, messages)
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
