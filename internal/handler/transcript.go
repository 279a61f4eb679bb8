package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/repository"
	"k8s.io/klog/v2"
)

const (
	defaultTranscriptLimit = 20
	maxTranscriptLimit     = 100
)

// TranscriptHandler 审计日志只读接口
type TranscriptHandler struct {
	repo repository.TranscriptRepository
}

func NewTranscriptHandler(repo repository.TranscriptRepository) *TranscriptHandler {
	return &TranscriptHandler{repo: repo}
}

// List 最近的日志，按时间倒序；type 可选
func (h *TranscriptHandler) List(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document store not configured"})
		return
	}

	limit := defaultTranscriptLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(parsed, maxTranscriptLimit)
	}

	var (
		entries []*model.TranscriptLog
		err     error
	)
	switch transcriptType := model.TranscriptType(c.Query("type")); transcriptType {
	case "":
		entries, err = h.repo.Recent(c.Request.Context(), limit)
	case model.TranscriptTypeGeneralComm, model.TranscriptTypeStressDetected, model.TranscriptTypeManualLog:
		entries, err = h.repo.RecentByType(c.Request.Context(), transcriptType, limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return
	}
	if err != nil {
		klog.Errorf("TranscriptHandler.List: failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"total": len(entries),
	})
}
