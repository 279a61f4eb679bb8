package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/virgo-whisper/backend/internal/service"
	"k8s.io/klog/v2"
)

// ConversationHandler 会话只读接口
type ConversationHandler struct {
	store *service.ConversationStore
}

func NewConversationHandler(store *service.ConversationStore) *ConversationHandler {
	return &ConversationHandler{store: store}
}

// Active 当前活动会话，没有时返回 404
func (h *ConversationHandler) Active(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.GetHeader(SessionHeader)
	}

	conv, err := h.store.GetActive(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrStoreNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		klog.Errorf("ConversationHandler.Active: failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}
