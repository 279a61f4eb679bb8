package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/utils"
	"k8s.io/klog/v2"
)

// CalmingReply 检测到压力时的安抚语
const CalmingReply = "Deep breath. Focus."

// ReplyKind 响应类型
type ReplyKind int

const (
	// ReplyAudio 返回合成好的语音
	ReplyAudio ReplyKind = iota
	// ReplySilent 只记录日志，不回复
	ReplySilent
)

// Route 处理本次请求的分支
type Route string

const (
	RouteOverAndOut   Route = "over_and_out"
	RouteConversation Route = "conversation"
	RouteCommand      Route = "command"
	RouteTrigger      Route = "trigger"
	RouteStress       Route = "stress"
)

// Request 一段已识别的语音
type Request struct {
	Transcript string
	Filename   string
	SessionID  string
}

// Reply Kind 为 ReplyAudio 时 Audio 非空
type Reply struct {
	Kind           ReplyKind
	Route          Route
	Text           string
	Audio          []byte
	ConversationID string
}

// Assistant 按固定顺序路由一段转写文本：结束指令、活动会话、命令、流程触发、压力检测
type Assistant struct {
	library       *ProtocolLibrary
	conversations *ConversationStore
	turns         *TurnHandler
	commands      *CommandDispatcher
	stress        *StressAnalyzer
	voice         *VoiceSynthesizer
	recorder      TranscriptRecorder
}

// AssistantDeps 组装 Assistant 所需的组件
type AssistantDeps struct {
	Library       *ProtocolLibrary
	Conversations *ConversationStore
	Turns         *TurnHandler
	Commands      *CommandDispatcher
	Stress        *StressAnalyzer
	Voice         *VoiceSynthesizer
	Recorder      TranscriptRecorder
}

func NewAssistant(deps AssistantDeps) *Assistant {
	return &Assistant{
		library:       deps.Library,
		conversations: deps.Conversations,
		turns:         deps.Turns,
		commands:      deps.Commands,
		stress:        deps.Stress,
		voice:         deps.Voice,
		recorder:      deps.Recorder,
	}
}

// Handle 语音合成失败时返回包装了 ErrVoiceUnavailable 的错误
func (a *Assistant) Handle(ctx context.Context, req Request) (*Reply, error) {
	klog.V(6).Infof("开始路由: session=%q, transcript=%q", req.SessionID, req.Transcript)

	if IsOverAndOut(req.Transcript) {
		klog.V(6).Infof("识别到 over and out，结束会话")
		if conv := a.activeConversation(ctx, req.SessionID); conv != nil {
			if err := a.conversations.Complete(ctx, conv.ID); err != nil {
				klog.Errorf("结束会话失败: id=%s, error=%v", conv.ID, err)
			}
		}
		return a.speak(ctx, RouteOverAndOut, FarewellReply, "")
	}

	if conv := a.activeConversation(ctx, req.SessionID); conv != nil {
		protocol := a.library.FindByID(conv.ProtocolID)
		if protocol == nil {
			klog.Errorf("活动会话 %s 关联的流程 %q 不存在，按新请求处理", conv.ID, conv.ProtocolID)
		} else {
			result := a.turns.HandleTurn(ctx, protocol, req.Transcript, conv, req.SessionID)
			// 模型只返回了结束标记时继续向下路由
			if result.Text != "" {
				return a.speak(ctx, RouteConversation, result.Text, result.ConversationID)
			}
		}
	}

	reply, matched, err := a.commands.Dispatch(ctx, req.Transcript)
	if err != nil {
		return nil, err
	}
	if matched && reply != "" {
		return a.speak(ctx, RouteCommand, reply, "")
	}

	if protocol := a.library.MatchTrigger(req.Transcript); protocol != nil {
		result := a.turns.HandleTurn(ctx, protocol, req.Transcript, nil, req.SessionID)
		if result.Text != "" {
			return a.speak(ctx, RouteTrigger, result.Text, result.ConversationID)
		}
	}

	return a.checkStress(ctx, req)
}

func (a *Assistant) checkStress(ctx context.Context, req Request) (*Reply, error) {
	klog.V(6).Infof("没有会话、命令或触发词，执行压力检测")
	analysis := a.stress.Analyze(ctx, req.Transcript)

	entry := &model.TranscriptLog{
		Text:             req.Transcript,
		OriginalFilename: req.Filename,
		Type:             model.TranscriptTypeGeneralComm,
		Analysis:         analysis,
	}
	if analysis.Stressed() {
		entry.Type = model.TranscriptTypeStressDetected
	}
	klog.V(6).Infof("压力检测结果: type=%s, analysis=%s", entry.Type, utils.ToJSON(analysis))
	if err := a.record(ctx, entry); err != nil {
		return nil, err
	}

	if entry.Type == model.TranscriptTypeStressDetected {
		return a.speak(ctx, RouteStress, CalmingReply, "")
	}
	return &Reply{Kind: ReplySilent, Route: RouteStress}, nil
}

func (a *Assistant) record(ctx context.Context, entry *model.TranscriptLog) error {
	if a.recorder == nil {
		return ErrStoreNotConfigured
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		klog.Errorf("保存通话日志失败: type=%s, error=%v", entry.Type, err)
		return fmt.Errorf("record transcript: %w", err)
	}
	return nil
}

// activeConversation 读取失败按没有活动会话处理
func (a *Assistant) activeConversation(ctx context.Context, sessionID string) *model.Conversation {
	conv, err := a.conversations.GetActive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrStoreNotConfigured) {
			klog.V(6).Infof("文档存储未连接，跳过活动会话检查")
		} else {
			klog.Errorf("读取活动会话失败: %v", err)
		}
		return nil
	}
	return conv
}

func (a *Assistant) speak(ctx context.Context, route Route, text, conversationID string) (*Reply, error) {
	klog.V(6).Infof("回复: route=%s, text=%q", route, text)
	audio, err := a.voice.Speak(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Kind:           ReplyAudio,
		Route:          route,
		Text:           text,
		Audio:          audio,
		ConversationID: conversationID,
	}, nil
}
