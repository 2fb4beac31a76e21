package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/pkg/response"
	"github.com/knolab/knolab/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	req := &service.SearchRequest{
		Query:      c.Query("q"),
		SourceType: c.Query("source_type"),
		SkillLevel: c.Query("skill_level"),
	}
	if value := c.Query("top_k"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			req.TopK = parsed
		}
	}
	if value := c.Query("cluster_id"); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			req.ClusterID = parsed
		}
	}
	if value := c.Query("date_from"); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			req.DateFrom = parsed
		}
	}
	if value := c.Query("date_to"); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			req.DateTo = parsed
		}
	}
	result, err := h.search.Search(c.Request.Context(), getUserID(c), kbID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
