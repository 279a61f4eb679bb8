package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/virgo-whisper/backend/internal/model"
	"k8s.io/klog/v2"
)

// ApologyReply 模型调用失败时的固定回复
const ApologyReply = "I'm sorry, I'm having trouble connecting."

const guidanceTemperature = 0.3

// ChatModel 一次性对话补全；userPrompt 为空时只发送 system 消息
type ChatModel interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// TurnResult 一轮流程对话的结果
type TurnResult struct {
	// Text 返回给用户的台词，已去掉结束标记
	Text           string
	ConversationID string
	State          model.ConversationState
	// Failed 模型调用失败，Text 为固定的致歉语，会话未更新
	Failed bool
}

// TurnHandler 让模型按流程给出下一句引导，并维护会话历史
type TurnHandler struct {
	chat  ChatModel
	store *ConversationStore
}

func NewTurnHandler(chat ChatModel, store *ConversationStore) *TurnHandler {
	return &TurnHandler{chat: chat, store: store}
}

// HandleTurn conv 为 nil 表示刚触发的新流程
func (h *TurnHandler) HandleTurn(ctx context.Context, protocol *model.Protocol, transcript string, conv *model.Conversation, sessionID string) TurnResult {
	contextLabel := contextNewProtocol
	history := conversationStarted
	convID := ""
	if conv != nil {
		contextLabel = contextContinueProtocol
		history = conv.History
		convID = conv.ID
	}

	if h.chat == nil {
		klog.Errorf("流程对话失败: LLM 未配置")
		return TurnResult{Text: ApologyReply, ConversationID: convID, Failed: true}
	}

	prompt := buildGuidancePrompt(contextLabel, protocol, history, transcript)
	klog.V(6).Infof("发送流程对话: protocol=%s, conversation=%q, transcript=%q", protocol.Name, convID, transcript)

	reply, err := h.chat.Chat(ctx, prompt, "", guidanceTemperature)
	if err != nil {
		klog.Errorf("流程对话调用 LLM 失败: %v", err)
		return TurnResult{Text: ApologyReply, ConversationID: convID, Failed: true}
	}

	// 历史里保留模型原始回复
	fields := model.ConversationFields{
		model.FieldProtocolID:   protocol.ID,
		model.FieldProtocolName: protocol.Name,
		model.FieldHistory:      fmt.Sprintf("%sUSER: %s\nAI: %s\n", history, transcript, reply),
	}

	state := model.ConversationStateActive
	if strings.Contains(reply, CompletionSentinel) {
		state = model.ConversationStateComplete
		reply = strings.TrimSpace(strings.ReplaceAll(reply, CompletionSentinel, ""))
		klog.V(6).Infof("流程已完成: protocol=%s", protocol.Name)
	}
	fields[model.FieldState] = state
	if convID == "" && sessionID != "" {
		fields[model.FieldSessionID] = sessionID
	}

	if h.store == nil {
		klog.Errorf("无法保存会话状态: 文档存储未连接")
	} else if id, err := h.store.Update(ctx, convID, fields); err != nil {
		klog.Errorf("保存会话状态失败: %v", err)
	} else {
		convID = id
	}

	return TurnResult{Text: reply, ConversationID: convID, State: state}
}
