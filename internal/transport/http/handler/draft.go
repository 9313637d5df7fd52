package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cabinetquote/internal/app"
	"cabinetquote/internal/transport/http/response"
)

const defaultDraftListLimit = 20

type DraftHandler struct {
	draftService *app.DraftService
}

type CreateDraftRequest struct {
	Content string `json:"content"`
}

func NewDraftHandler(draftService *app.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

func (h *DraftHandler) Create(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	draft, err := h.draftService.Create(c.Request.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMailUnavailable):
			response.Error(c, http.StatusServiceUnavailable, "Gmail is not connected: "+h.draftService.Status())
		case errors.Is(err, app.ErrDraftEmpty):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("create draft failed: %v", err)
			response.Error(c, http.StatusOK, "Failed to create draft: "+err.Error())
		}
		return
	}

	response.Draft(c, "Draft created successfully in your Gmail!", draft.GmailDraftID)
}

func (h *DraftHandler) List(c *gin.Context) {
	limit := defaultDraftListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	drafts, err := h.draftService.List(limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRecordsUnavailable):
			response.Error(c, http.StatusServiceUnavailable, err.Error())
		default:
			log.Printf("list drafts failed: %v", err)
			response.Error(c, http.StatusInternalServerError, "list drafts failed")
		}
		return
	}

	response.Data(c, drafts)
}
