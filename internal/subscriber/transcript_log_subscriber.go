package subscriber

import (
	"context"
	"fmt"

	"github.com/virgo-whisper/backend/internal/eventbus"
	"github.com/virgo-whisper/backend/internal/model"
	"k8s.io/klog/v2"
)

// TranscriptLogSubscriber 将审计日志事件写入 transcripts 集合
type TranscriptLogSubscriber struct {
	repo transcriptWriter
}

type transcriptWriter interface {
	Create(ctx context.Context, entry *model.TranscriptLog) error
}

func NewTranscriptLogSubscriber(repo transcriptWriter) *TranscriptLogSubscriber {
	return &TranscriptLogSubscriber{repo: repo}
}

func (s *TranscriptLogSubscriber) Register(bus *eventbus.TranscriptEventBus) {
	if bus == nil {
		return
	}
	for _, eventType := range eventbus.TranscriptEventTypes {
		bus.Subscribe(eventType, s.handle)
	}
}

func (s *TranscriptLogSubscriber) handle(ctx context.Context, event eventbus.TranscriptEvent) error {
	if event.Entry == nil {
		return fmt.Errorf("日志内容为空: type=%s", event.Type)
	}
	if err := s.repo.Create(ctx, event.Entry); err != nil {
		klog.Errorf("写入审计日志失败: type=%s, error=%v", event.Type, err)
		return err
	}
	klog.V(6).Infof("审计日志已写入: type=%s, id=%s", event.Type, event.Entry.ID)
	return nil
}
