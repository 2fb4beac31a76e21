package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/pkg/errcode"
	"github.com/knolab/knolab/internal/pkg/response"
	"github.com/knolab/knolab/internal/service"
)

type AnalysisHandler struct {
	analysis *service.AnalysisService
}

func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

func (h *AnalysisHandler) Clusters(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	summaries, err := h.analysis.ListClusters(c.Request.Context(), getUserID(c), kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summaries)
}

func (h *AnalysisHandler) Duplicates(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	threshold := 0.0
	if value := c.Query("threshold"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			response.Error(c, errcode.ErrInvalid, "threshold must be in (0, 1]")
			return
		}
		threshold = parsed
	}
	report, err := h.analysis.DuplicateScan(c.Request.Context(), getUserID(c), kbID, threshold)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

func (h *AnalysisHandler) Analytics(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	overview, err := h.analysis.Overview(c.Request.Context(), getUserID(c), kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, overview)
}
