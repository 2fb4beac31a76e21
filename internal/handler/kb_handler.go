package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/pkg/errcode"
	"github.com/knolab/knolab/internal/pkg/response"
	"github.com/knolab/knolab/internal/service"
)

type KBHandler struct {
	kbs *service.KnowledgeBaseService
}

func NewKBHandler(kbs *service.KnowledgeBaseService) *KBHandler {
	return &KBHandler{kbs: kbs}
}

type createKBRequest struct {
	Name string `json:"name"`
}

func (h *KBHandler) Create(c *gin.Context) {
	var req createKBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	kb, err := h.kbs.Create(c.Request.Context(), getUserID(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kb)
}

func (h *KBHandler) List(c *gin.Context) {
	kbs, err := h.kbs.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kbs)
}

func (h *KBHandler) Get(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	kb, err := h.kbs.Get(c.Request.Context(), getUserID(c), kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kb)
}

func (h *KBHandler) SetDefault(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.kbs.SetDefault(c.Request.Context(), getUserID(c), kbID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *KBHandler) Delete(c *gin.Context) {
	kbID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.kbs.Delete(c.Request.Context(), getUserID(c), kbID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
