package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/pkg/errcode"
	"github.com/knolab/knolab/internal/pkg/response"
	"github.com/knolab/knolab/internal/service"
)

type SuggestionHandler struct {
	suggestions *service.SuggestionService
}

func NewSuggestionHandler(suggestions *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions}
}

type generateRequest struct {
	Max int `json:"max_suggestions"`
}

func (h *SuggestionHandler) Generate(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid request")
			return
		}
	}
	result, err := h.suggestions.Generate(c.Request.Context(), getUserID(c), kbID, req.Max)
	if err != nil {
		handleError(c, err)
		return
	}
	// A closed gate is reported, not erred: clients show the unmet
	// thresholds instead of an empty failure.
	if !result.GateOpen {
		response.Success(c, gin.H{
			"suggestions": result.Suggestions,
			"gate_open":   false,
			"reason":      "insufficient_data",
			"unmet":       result.Unmet,
			"stats":       result.Stats,
		})
		return
	}
	response.Success(c, result)
}

func (h *SuggestionHandler) List(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	suggestions, err := h.suggestions.List(c.Request.Context(), getUserID(c), kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, suggestions)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *SuggestionHandler) UpdateStatus(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	suggestionID, ok := parseID(c, "sid")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	updated, err := h.suggestions.UpdateStatus(c.Request.Context(), getUserID(c), kbID, suggestionID, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, updated)
}
