package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/virgo-whisper/backend/internal/pkg/stt"
	"github.com/virgo-whisper/backend/internal/service"
	"k8s.io/klog/v2"
)

// SessionHeader 可选的会话标识请求头，表单字段 session_id 优先
const SessionHeader = "X-Session-ID"

// AudioHandler 处理上传的语音片段
type AudioHandler struct {
	assistant   *service.Assistant
	transcriber stt.Transcriber
	uploadDir   string
}

// NewAudioHandler transcriber 为 nil 表示语音识别未配置
func NewAudioHandler(assistant *service.Assistant, transcriber stt.Transcriber, uploadDir string) *AudioHandler {
	return &AudioHandler{assistant: assistant, transcriber: transcriber, uploadDir: uploadDir}
}

// Analyze 识别语音并路由，返回 audio/mpeg、204 或 JSON 错误
func (h *AudioHandler) Analyze(c *gin.Context) {
	klog.V(6).Infof("收到 /analyze-audio-file 请求")

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		// 文件名为空的 part 会被 multipart 解析成普通表单值
		if form := c.Request.MultipartForm; form != nil && len(form.Value["audio_file"]) > 0 {
			klog.V(6).Infof("Analyze: audio_file 没有文件名")
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
			return
		}
		klog.V(6).Infof("Analyze: 缺少 audio_file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No 'audio_file' key in request"})
		return
	}

	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.GetHeader(SessionHeader))
	}

	// 客户端断开后仍要完成识别、会话写入和审计日志
	ctx := context.WithoutCancel(c.Request.Context())
	transcript, err := h.transcribe(ctx, fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": transcriptionMessage(err)})
		return
	}

	reply, err := h.assistant.Handle(ctx, service.Request{
		Transcript: transcript,
		Filename:   fileHeader.Filename,
		SessionID:  sessionID,
	})
	if err != nil {
		if errors.Is(err, service.ErrVoiceUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate voice"})
			return
		}
		klog.Errorf("Analyze: 路由失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Server error: %v", err)})
		return
	}

	if reply.Kind == service.ReplySilent {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", reply.Audio)
}

// transcribe 上传内容写入临时文件，识别结束后删除；不使用客户端文件名作为路径
func (h *AudioHandler) transcribe(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if h.transcriber == nil {
		return "", service.ErrNotConfigured
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(h.uploadDir, "audio-*"+filepath.Ext(filepath.Base(fileHeader.Filename)))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			klog.Warningf("删除临时音频文件失败: %s, %v", tmp.Name(), err)
		}
	}()

	_, err = io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	result, err := h.transcriber.Transcribe(ctx, tmp.Name())
	if err != nil {
		return "", err
	}
	klog.V(6).Infof("识别结果: %q", result.Text)
	return result.Text, nil
}

func transcriptionMessage(err error) string {
	var transcriptionErr *stt.TranscriptionError
	switch {
	case errors.As(err, &transcriptionErr):
		return transcriptionErr.Error()
	case errors.Is(err, stt.ErrEmptyTranscript):
		return stt.ErrEmptyTranscript.Error()
	}
	klog.Errorf("语音识别失败: %v", err)
	return fmt.Sprintf("Server error: %v", err)
}
