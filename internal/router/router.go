package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/virgo-whisper/backend/config"
	"github.com/virgo-whisper/backend/internal/handler"
)

// AnalyzeAudioPath 语音上传接口，响应体已经是 MP3，不做 gzip
const AnalyzeAudioPath = "/analyze-audio-file"

func Setup(
	cfg *config.Config,
	audioHandler *handler.AudioHandler,
	protocolHandler *handler.ProtocolHandler,
	transcriptHandler *handler.TranscriptHandler,
	conversationHandler *handler.ConversationHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 网页演示需要跨域访问
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", handler.SessionHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{AnalyzeAudioPath})))

	r.GET("/", protocolHandler.Home)
	r.POST("/reload-protocols", protocolHandler.Reload)
	r.POST(AnalyzeAudioPath, audioHandler.Analyze)

	api := r.Group("/api")
	{
		api.GET("/protocols", protocolHandler.List)
		api.GET("/transcripts", transcriptHandler.List)
		api.GET("/conversations/active", conversationHandler.Active)
	}

	return r
}
