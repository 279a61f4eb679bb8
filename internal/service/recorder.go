package service

import (
	"context"
	"time"

	"github.com/virgo-whisper/backend/internal/eventbus"
	"github.com/virgo-whisper/backend/internal/model"
	"k8s.io/klog/v2"
)

// TranscriptRecorder 写入一条审计日志
type TranscriptRecorder interface {
	Record(ctx context.Context, entry *model.TranscriptLog) error
}

// EventRecorder 通过事件总线发布审计日志，由订阅者负责落库
type EventRecorder struct {
	bus *eventbus.TranscriptEventBus
	now func() time.Time
}

func NewEventRecorder(bus *eventbus.TranscriptEventBus) *EventRecorder {
	return &EventRecorder{bus: bus, now: time.Now}
}

func (r *EventRecorder) Record(ctx context.Context, entry *model.TranscriptLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	event := eventbus.NewTranscriptEvent(entry)
	if r.bus == nil || !r.bus.HasSubscribers(event.Type) {
		klog.Warningf("审计日志没有订阅者，未保存: type=%s, text=%q", event.Type, entry.Text)
		return ErrStoreNotConfigured
	}
	return r.bus.Publish(ctx, event)
}
