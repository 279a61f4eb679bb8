package repository

import (
	"context"
	"errors"

	"github.com/virgo-whisper/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// 集合名，SQL 存储下即表名
const (
	ProtocolsCollection     = "protocols"
	ConversationsCollection = "conversations"
	TranscriptsCollection   = "transcripts"
)

// ProtocolRepository 流程库存储
type ProtocolRepository interface {
	// List 按存储顺序返回全部流程
	List(ctx context.Context) ([]*model.Protocol, error)

	// Save 新建或覆盖流程，ID 为空时自动生成
	Save(ctx context.Context, protocol *model.Protocol) error
}

// ConversationRepository 会话状态存储
type ConversationRepository interface {
	// Latest 返回最近更新的会话；sessionID 非空时只在该会话范围内查找
	Latest(ctx context.Context, sessionID string) (*model.Conversation, error)

	// Upsert id 为空或记录不存在时新建，返回记录 ID
	Upsert(ctx context.Context, id string, fields model.ConversationFields) (string, error)
}

// TranscriptRepository 审计日志存储，只追加
type TranscriptRepository interface {
	Create(ctx context.Context, entry *model.TranscriptLog) error

	// Recent 最新的 limit 条，按时间倒序
	Recent(ctx context.Context, limit int) ([]*model.TranscriptLog, error)

	// RecentByType 指定类别最新的 limit 条，按时间倒序
	RecentByType(ctx context.Context, transcriptType model.TranscriptType, limit int) ([]*model.TranscriptLog, error)
}
