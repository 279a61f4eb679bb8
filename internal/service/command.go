package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/repository"
	"k8s.io/klog/v2"
)

// 固定回复
const (
	FarewellReply        = "Roger that. Virgo out."
	EmptyNoteReply       = "I heard the 'take a note' command, but didn't catch the note. Please try again."
	NoCommsReply         = "No recent communications to summarize."
	NoCriticalEventReply = "No critical events to debrief."
)

const (
	overAndOutPhrase = "over and out"
	takeNotePhrase   = "take a note"
	summarizePhrase  = "summarize"
	debriefPhrase    = "debrief me"

	summaryWindow      = 10
	debriefWindow      = 20
	summaryTemperature = 0.3
)

var takeNotePattern = regexp.MustCompile(`(?i)take\s+a\s+note`)

// CommandDispatcher 处理以唤醒词开头的固定语音命令
type CommandDispatcher struct {
	wakeWord    string
	chat        ChatModel
	transcripts repository.TranscriptRepository
	recorder    TranscriptRecorder
}

// NewCommandDispatcher wakeWord 为空时使用 virgo
func NewCommandDispatcher(wakeWord string, chat ChatModel, transcripts repository.TranscriptRepository, recorder TranscriptRecorder) *CommandDispatcher {
	wakeWord = NormalizeTranscript(strings.TrimSpace(wakeWord))
	if wakeWord == "" {
		wakeWord = "virgo"
	}
	return &CommandDispatcher{
		wakeWord:    wakeWord,
		chat:        chat,
		transcripts: transcripts,
		recorder:    recorder,
	}
}

// IsOverAndOut 结束指令，不需要唤醒词
func IsOverAndOut(transcript string) bool {
	return containsPhrase(NormalizeTranscript(transcript), overAndOutPhrase)
}

// Dispatch matched 为 false 表示不是命令
func (d *CommandDispatcher) Dispatch(ctx context.Context, transcript string) (string, bool, error) {
	normalized := NormalizeTranscript(transcript)

	switch {
	case containsPhrase(normalized, d.wakeWord+" "+takeNotePhrase):
		klog.V(6).Infof("识别到命令: take a note")
		reply, err := d.takeNote(ctx, transcript)
		return reply, true, err
	case containsPhrase(normalized, d.wakeWord+" "+summarizePhrase):
		klog.V(6).Infof("识别到命令: summarize")
		reply, err := d.summarize(ctx)
		return reply, true, err
	case containsPhrase(normalized, d.wakeWord+" "+debriefPhrase):
		klog.V(6).Infof("识别到命令: debrief me")
		reply, err := d.debrief(ctx)
		return reply, true, err
	}
	return "", false, nil
}

func (d *CommandDispatcher) takeNote(ctx context.Context, transcript string) (string, error) {
	note := extractNote(transcript)
	if note == "" {
		return EmptyNoteReply, nil
	}

	entry := &model.TranscriptLog{
		Text:            note,
		OriginalCommand: transcript,
		Type:            model.TranscriptTypeManualLog,
	}
	if d.recorder == nil {
		return "", ErrStoreNotConfigured
	}
	if err := d.recorder.Record(ctx, entry); err != nil {
		klog.Errorf("保存手动记录失败: %v", err)
		return "", err
	}
	klog.V(6).Infof("手动记录已保存: %q", note)
	return "Note taken: " + note, nil
}

// extractNote 取原始文本中 "take a note" 之后的部分，保留大小写
func extractNote(transcript string) string {
	loc := takeNotePattern.FindStringIndex(transcript)
	if loc == nil {
		return ""
	}
	note := strings.TrimSpace(transcript[loc[1]:])
	note = strings.TrimLeft(note, ":,;.")
	return strings.TrimSpace(note)
}

func (d *CommandDispatcher) summarize(ctx context.Context) (string, error) {
	if d.transcripts == nil {
		return "", ErrStoreNotConfigured
	}
	entries, err := d.transcripts.RecentByType(ctx, model.TranscriptTypeGeneralComm, summaryWindow)
	if err != nil {
		klog.Errorf("读取最近通话失败: %v", err)
		return "", err
	}

	comms := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		comms = append(comms, entries[i].Text)
	}
	if len(comms) == 0 {
		return NoCommsReply, nil
	}
	return d.complete(ctx, summaryPrompt, strings.Join(comms, "\n- ")), nil
}

func (d *CommandDispatcher) debrief(ctx context.Context) (string, error) {
	if d.transcripts == nil {
		return "", ErrStoreNotConfigured
	}
	entries, err := d.transcripts.Recent(ctx, debriefWindow)
	if err != nil {
		klog.Errorf("读取最近日志失败: %v", err)
		return "", err
	}

	events := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		switch entries[i].Type {
		case model.TranscriptTypeStressDetected:
			events = append(events, "Stress detected: "+entries[i].Text)
		case model.TranscriptTypeManualLog:
			events = append(events, "Manual log: "+entries[i].Text)
		}
	}
	if len(events) == 0 {
		return NoCriticalEventReply, nil
	}
	return d.complete(ctx, debriefPrompt, strings.Join(events, "\n- ")), nil
}

// complete 摘要失败时把错误念给用户
func (d *CommandDispatcher) complete(ctx context.Context, systemPrompt, content string) string {
	if d.chat == nil {
		return fmt.Sprintf("Error during summary: %v", ErrNotConfigured)
	}
	reply, err := d.chat.Chat(ctx, systemPrompt, content, summaryTemperature)
	if err != nil {
		klog.Errorf("生成摘要失败: %v", err)
		return fmt.Sprintf("Error during summary: %v", err)
	}
	return reply
}
