package main

import (
	"context"
	"flag"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"k8s.io/klog/v2"

	"github.com/virgo-whisper/backend/config"
	"github.com/virgo-whisper/backend/internal/eventbus"
	"github.com/virgo-whisper/backend/internal/handler"
	"github.com/virgo-whisper/backend/internal/pkg/database"
	"github.com/virgo-whisper/backend/internal/pkg/llm"
	"github.com/virgo-whisper/backend/internal/pkg/stt"
	"github.com/virgo-whisper/backend/internal/pkg/tts"
	"github.com/virgo-whisper/backend/internal/repository"
	"github.com/virgo-whisper/backend/internal/router"
	"github.com/virgo-whisper/backend/internal/service"
	"github.com/virgo-whisper/backend/internal/subscriber"
)

// 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

type stores struct {
	protocols     repository.ProtocolRepository
	conversations repository.ConversationRepository
	transcripts   repository.TranscriptRepository
}

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Data.UploadDir, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	ctx := context.Background()

	// 初始化文档存储，失败时相关功能按未配置处理
	st, closeStore := initStores(ctx, cfg)
	defer closeStore()

	// 初始化外部服务客户端
	var transcriber stt.Transcriber
	if cfg.HasSTT() {
		transcriber = stt.NewAssemblyAI(cfg.STT.APIKey, cfg.STT.BaseURL)
	} else {
		klog.Warningf("未配置 ASSEMBLYAI_API_KEY，语音识别不可用")
	}

	var chat service.ChatModel
	if cfg.HasLLM() {
		client, err := llm.NewClient(cfg)
		if err != nil {
			klog.Warningf("初始化 LLM 客户端失败，对话与压力检测不可用: %v", err)
		} else {
			chat = client
		}
	} else {
		klog.Warningf("未配置 CEREBRAS_API_KEY，对话与压力检测不可用")
	}

	var synth tts.Synthesizer
	if cfg.HasTTS() {
		synth = tts.NewElevenLabs(tts.Config{
			APIKey:       cfg.TTS.APIKey,
			BaseURL:      cfg.TTS.BaseURL,
			VoiceID:      cfg.TTS.VoiceID,
			ModelID:      cfg.TTS.ModelID,
			OutputFormat: cfg.TTS.OutputFormat,
		})
	} else {
		klog.Warningf("未配置 ELEVENLABS_API_KEY，语音合成不可用")
	}

	// 审计日志通过事件总线落库
	bus := eventbus.NewTranscriptEventBus()
	if st.transcripts != nil {
		subscriber.NewTranscriptLogSubscriber(st.transcripts).Register(bus)
	}
	recorder := service.NewEventRecorder(bus)

	// 初始化 Service
	library := service.NewProtocolLibrary(st.protocols)
	conversations := service.NewConversationStore(st.conversations, cfg.Conversation.ActiveWindow)
	assistant := service.NewAssistant(service.AssistantDeps{
		Library:       library,
		Conversations: conversations,
		Turns:         service.NewTurnHandler(chat, conversations),
		Commands:      service.NewCommandDispatcher(cfg.Conversation.WakeWord, chat, st.transcripts, recorder),
		Stress:        service.NewStressAnalyzer(chat),
		Voice:         service.NewVoiceSynthesizer(synth),
		Recorder:      recorder,
	})

	if st.protocols != nil {
		if cfg.Protocols.SeedFile != "" {
			seedProtocols(ctx, library, cfg.Protocols.SeedFile)
		}
		if _, err := library.Reload(ctx); err != nil {
			klog.Errorf("启动时加载流程库失败: %v", err)
		}
	} else {
		klog.Errorf("CRITICAL: 文档存储未连接，流程库不会加载")
	}

	// 初始化 Handler
	audioHandler := handler.NewAudioHandler(assistant, transcriber, cfg.Data.UploadDir)
	protocolHandler := handler.NewProtocolHandler(library, conversations, version)
	transcriptHandler := handler.NewTranscriptHandler(st.transcripts)
	conversationHandler := handler.NewConversationHandler(conversations)

	// 设置路由
	r := router.Setup(cfg, audioHandler, protocolHandler, transcriptHandler, conversationHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedProtocols 空存储时导入流程清单，失败只记录日志
func seedProtocols(ctx context.Context, library *service.ProtocolLibrary, path string) {
	protocols, err := service.LoadProtocolSeed(path)
	if err != nil {
		klog.Errorf("读取流程清单失败: %v", err)
		return
	}
	if _, err := library.Seed(ctx, protocols); err != nil {
		klog.Errorf("导入流程清单失败: %v", err)
	}
}

// initStores 按配置选择 firestore 或 SQL 存储；连接失败时返回空仓储
func initStores(ctx context.Context, cfg *config.Config) (stores, func()) {
	noop := func() {}
	if !cfg.HasStoreCredentials() {
		klog.Warningf("文档存储凭证缺失: type=%s，会话、日志与流程库不可用", cfg.Database.Type)
		return stores{}, noop
	}

	if cfg.Database.Type == "firestore" {
		client, err := database.InitFirestore(ctx, cfg.Database.ProjectID, cfg.Database.CredentialsFile)
		if err != nil {
			klog.Warningf("初始化 firestore 失败: %v", err)
			return stores{}, noop
		}
		klog.Infof("firestore 连接成功")
		return firestoreStores(client), func() {
			if err := client.Close(); err != nil {
				klog.Warningf("关闭 firestore 客户端失败: %v", err)
			}
		}
	}

	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		klog.Warningf("初始化数据库失败: type=%s, error=%v", cfg.Database.Type, err)
		return stores{}, noop
	}
	klog.Infof("数据库连接成功: type=%s", cfg.Database.Type)
	return stores{
		protocols:     repository.NewProtocolRepository(db),
		conversations: repository.NewConversationRepository(db),
		transcripts:   repository.NewTranscriptRepository(db),
	}, noop
}

func firestoreStores(client *firestore.Client) stores {
	return stores{
		protocols:     repository.NewFirestoreProtocolRepository(client),
		conversations: repository.NewFirestoreConversationRepository(client),
		transcripts:   repository.NewFirestoreTranscriptRepository(client),
	}
}
