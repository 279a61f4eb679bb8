package model

import (
	"time"
)

// Protocol 应急处置流程：按顺序执行的步骤 + 触发关键词
type Protocol struct {
	ID       string   `json:"id" yaml:"id" gorm:"primaryKey;size:64"`
	Name     string   `json:"name" yaml:"name" gorm:"size:255;not null"`
	Steps    []string `json:"steps" yaml:"steps" gorm:"serializer:json;type:text"`
	Keywords []string `json:"keywords" yaml:"keywords" gorm:"serializer:json;type:text"`
	// SortOrder 决定 SQL 存储下的加载顺序，即触发匹配的先后
	SortOrder int `json:"sort_order" yaml:"sort_order" gorm:"default:0;index"`
}

func (Protocol) TableName() string {
	return "protocols"
}

// ConversationState 会话状态
type ConversationState string

const (
	ConversationStateActive   ConversationState = "active"
	ConversationStateComplete ConversationState = "complete"
)

// Conversation 按某个流程进行的多轮对话
type Conversation struct {
	ID           string            `json:"id" gorm:"primaryKey;size:64"`
	SessionID    string            `json:"session_id" gorm:"size:128;index"`
	ProtocolID   string            `json:"protocol_id" gorm:"size:64"`
	ProtocolName string            `json:"protocol_name" gorm:"size:255"`
	History      string            `json:"history" gorm:"type:text"`
	State        ConversationState `json:"state" gorm:"size:20;default:active"`
	LastUpdate   time.Time         `json:"last_update" gorm:"column:last_update;index"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// IsActive 最近 window 内有更新且未结束
func (c *Conversation) IsActive(now time.Time, window time.Duration) bool {
	if c == nil {
		return false
	}
	if c.State == ConversationStateComplete {
		return false
	}
	return now.Sub(c.LastUpdate) < window
}

// 会话字段名，同时作为 SQL 列名和 firestore 字段名
const (
	FieldSessionID    = "session_id"
	FieldProtocolID   = "protocol_id"
	FieldProtocolName = "protocol_name"
	FieldHistory      = "history"
	FieldState        = "state"
	FieldLastUpdate   = "last_update"
)

// ConversationFields 会话的部分字段更新
type ConversationFields map[string]interface{}

// Apply 将字段写入会话结构体，未知字段忽略
func (c *Conversation) Apply(fields ConversationFields) {
	for key, value := range fields {
		switch key {
		case FieldSessionID:
			c.SessionID, _ = value.(string)
		case FieldProtocolID:
			c.ProtocolID, _ = value.(string)
		case FieldProtocolName:
			c.ProtocolName, _ = value.(string)
		case FieldHistory:
			c.History, _ = value.(string)
		case FieldState:
			switch v := value.(type) {
			case ConversationState:
				c.State = v
			case string:
				c.State = ConversationState(v)
			}
		case FieldLastUpdate:
			if t, ok := value.(time.Time); ok {
				c.LastUpdate = t
			}
		}
	}
}

// TranscriptType 日志类别
type TranscriptType string

const (
	TranscriptTypeGeneralComm    TranscriptType = "general_comm"
	TranscriptTypeStressDetected TranscriptType = "stress_detected"
	TranscriptTypeManualLog      TranscriptType = "manual_log"
)

// StressAnalysis 压力检测结果；Error 非空表示调用或解析失败
type StressAnalysis struct {
	IsStressed bool   `json:"is_stressed" firestore:"is_stressed"`
	Reason     string `json:"reason,omitempty" firestore:"reason,omitempty"`
	Error      string `json:"error,omitempty" firestore:"error,omitempty"`
}

// Stressed 出错的分析结果一律视为未检测到压力
func (a *StressAnalysis) Stressed() bool {
	return a != nil && a.Error == "" && a.IsStressed
}

// TranscriptLog 只追加的审计日志
type TranscriptLog struct {
	ID               string          `json:"id" gorm:"primaryKey;size:64"`
	Text             string          `json:"text" gorm:"type:text"`
	OriginalCommand  string          `json:"original_command,omitempty" gorm:"type:text"`
	OriginalFilename string          `json:"original_filename,omitempty" gorm:"size:500"`
	Type             TranscriptType  `json:"type" gorm:"size:32;index"`
	Analysis         *StressAnalysis `json:"analysis,omitempty" gorm:"serializer:json;type:text"`
	Timestamp        time.Time       `json:"timestamp" gorm:"index"`
}

func (TranscriptLog) TableName() string {
	return "transcripts"
}
