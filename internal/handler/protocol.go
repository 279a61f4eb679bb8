package handler

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/virgo-whisper/backend/internal/service"
	"k8s.io/klog/v2"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Virgo's Whisper AI</title></head>
<body>
<p>Virgo's Whisper AI ({{.Version}}) is online.</p>
<p>{{.Count}} protocols loaded.</p>
<p>Conversations stay active for {{.Window}} after the last update.</p>
<form action="/reload-protocols" method="post">
    <button type="submit">Reload Protocols</button>
</form>
</body>
</html>
`))

// ProtocolHandler 流程库相关接口
type ProtocolHandler struct {
	library       *service.ProtocolLibrary
	conversations *service.ConversationStore
	version       string
}

func NewProtocolHandler(library *service.ProtocolLibrary, conversations *service.ConversationStore, version string) *ProtocolHandler {
	return &ProtocolHandler{library: library, conversations: conversations, version: version}
}

// Home 存活页面：版本、已加载流程数、会话窗口和手动刷新按钮
func (h *ProtocolHandler) Home(c *gin.Context) {
	window := service.DefaultActiveWindow
	if h.conversations != nil {
		window = h.conversations.Window()
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := homeTemplate.Execute(c.Writer, gin.H{
		"Version": h.version,
		"Count":   h.library.Count(),
		"Window":  window.String(),
	}); err != nil {
		klog.Errorf("Home: 渲染页面失败: %v", err)
	}
}

// Reload 重新从存储加载流程库；失败时保留原有流程
func (h *ProtocolHandler) Reload(c *gin.Context) {
	count, err := h.library.Reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Reload failed: %v", err),
			"count": count,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Reloaded. %d protocols now loaded.", count),
		"count":   count,
	})
}

// List 当前缓存的流程
func (h *ProtocolHandler) List(c *gin.Context) {
	protocols := h.library.List()
	c.JSON(http.StatusOK, gin.H{
		"data":  protocols,
		"total": len(protocols),
	})
}
