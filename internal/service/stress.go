package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/utils"
	"k8s.io/klog/v2"
)

const stressTemperature = 0.1

// StressAnalyzer 判断一段无线电通话是否带有压力
type StressAnalyzer struct {
	chat ChatModel
}

func NewStressAnalyzer(chat ChatModel) *StressAnalyzer {
	return &StressAnalyzer{chat: chat}
}

// Analyze 不返回 error：调用或解析失败记录在 StressAnalysis.Error 中
func (a *StressAnalyzer) Analyze(ctx context.Context, transcript string) *model.StressAnalysis {
	if a.chat == nil {
		return &model.StressAnalysis{Error: fmt.Sprintf("Exception calling LLM: %v", ErrNotConfigured)}
	}

	klog.V(6).Infof("发送压力检测: %q", transcript)
	reply, err := a.chat.Chat(ctx, stressPrompt, transcript, stressTemperature)
	if err != nil {
		klog.Errorf("压力检测调用 LLM 失败: %v", err)
		return &model.StressAnalysis{Error: fmt.Sprintf("Exception calling LLM: %v", err)}
	}
	return parseStressReply(reply)
}

// parseStressReply 容忍代码块和前后的说明文字
func parseStressReply(reply string) *model.StressAnalysis {
	var parsed struct {
		IsStressed *bool  `json:"is_stressed"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(utils.ExtractJSON(reply)), &parsed); err != nil {
		klog.Warningf("压力检测结果无法解析: %v, reply=%q", err, reply)
		return &model.StressAnalysis{Error: fmt.Sprintf("JSON parse failure: %v", err)}
	}
	if parsed.IsStressed == nil {
		return &model.StressAnalysis{Reason: parsed.Reason, Error: "JSON parse failure: missing is_stressed"}
	}

	klog.V(6).Infof("压力检测完成: stressed=%v, reason=%s", *parsed.IsStressed, parsed.Reason)
	return &model.StressAnalysis{IsStressed: *parsed.IsStressed, Reason: parsed.Reason}
}
