package eventbus

import "github.com/virgo-whisper/backend/internal/model"

type TranscriptEventType string

const (
	TranscriptEventGeneralComm    TranscriptEventType = "transcript.general_comm"
	TranscriptEventStressDetected TranscriptEventType = "transcript.stress_detected"
	TranscriptEventManualLog      TranscriptEventType = "transcript.manual_log"
)

// TranscriptEventTypes 全部审计日志事件
var TranscriptEventTypes = []TranscriptEventType{
	TranscriptEventGeneralComm,
	TranscriptEventStressDetected,
	TranscriptEventManualLog,
}

// TranscriptEvent 一条待写入的审计日志
type TranscriptEvent struct {
	Type  TranscriptEventType
	Entry *model.TranscriptLog
}

func (e TranscriptEvent) EventType() TranscriptEventType {
	return e.Type
}

// NewTranscriptEvent 按日志类别生成事件
func NewTranscriptEvent(entry *model.TranscriptLog) TranscriptEvent {
	return TranscriptEvent{
		Type:  TranscriptEventType("transcript." + string(entry.Type)),
		Entry: entry,
	}
}

type TranscriptEventHandler = Handler[TranscriptEvent]
type TranscriptEventBus = Bus[TranscriptEventType, TranscriptEvent]

func NewTranscriptEventBus() *TranscriptEventBus {
	return NewBus[TranscriptEventType, TranscriptEvent]()
}
