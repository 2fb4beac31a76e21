package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/pkg/errcode"
	"github.com/knolab/knolab/internal/pkg/response"
	"github.com/knolab/knolab/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Ingest(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.documents.Ingest(c.Request.Context(), getUserID(c), kbID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	docs, err := h.documents.List(c.Request.Context(), getUserID(c), kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	docID, ok := parseID(c, "doc_id")
	if !ok {
		return
	}
	doc, concepts, err := h.documents.Get(c.Request.Context(), getUserID(c), kbID, docID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document": doc, "concepts": concepts})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	docID, ok := parseID(c, "doc_id")
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), kbID, docID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
